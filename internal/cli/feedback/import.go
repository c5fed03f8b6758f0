package feedback

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
)

// maxLineBytes bounds a single JSON-lines record.
const maxLineBytes = 1 << 20

type ImportCmd struct {
	File        string `arg:"" help:"JSON array or JSON-lines file of classified feedback ('-' reads stdin)."`
	SkipInvalid bool   `help:"Skip records that fail validation instead of aborting."`
	BatchSize   int    `help:"Records written per transaction." default:"500"`
}

func (c *ImportCmd) Run(ctx *cli.Context) error {
	var r io.Reader
	if c.File == "-" {
		r = ctx.Reader()
	} else {
		f, err := os.Open(c.File)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.File, err)
		}
		defer f.Close()
		r = f
	}

	records, err := ParseFeedback(r)
	if err != nil {
		return err
	}

	valid, problems := Prepare(records)
	if len(problems) > 0 {
		for _, p := range problems {
			logger.Warn("Invalid feedback record", "error", p)
		}
		if !c.SkipInvalid {
			return fmt.Errorf("%d invalid record(s), first: %w (use --skip-invalid to import the rest)", len(problems), problems[0])
		}
		ctx.Printf("⚠ Skipping %d invalid record(s)\n", len(problems))
	}

	batch := c.BatchSize
	if batch <= 0 {
		batch = len(valid)
	}
	inserted := 0
	for start := 0; start < len(valid); start += batch {
		end := min(start+batch, len(valid))
		n, err := ctx.Store.AddFeedback(ctx.Background(), valid[start:end])
		if err != nil {
			return fmt.Errorf("failed to store feedback (records %d-%d): %w", start+1, end, err)
		}
		inserted += n
	}

	logger.Info("Imported feedback", "read", len(records), "inserted", inserted, "invalid", len(problems))
	ctx.Printf("✓ Imported %d new record(s)", inserted)
	if existing := len(valid) - inserted; existing > 0 {
		ctx.Printf(", %d already present", existing)
	}
	ctx.Println()
	return nil
}

// ParseFeedback decodes a JSON array of records or one record per line.
func ParseFeedback(r io.Reader) ([]models.ClassifiedFeedback, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var records []models.ClassifiedFeedback
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return records, nil
	}

	var records []models.ClassifiedFeedback
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec models.ClassifiedFeedback
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback: %w", err)
	}
	return records, nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

var errDuplicateID = errors.New("duplicate id in input")

// Prepare normalizes timestamps to UTC and splits records into those that can
// be stored and the problems found with the rest. The first occurrence of a
// repeated id wins.
func Prepare(records []models.ClassifiedFeedback) ([]models.ClassifiedFeedback, []error) {
	valid := make([]models.ClassifiedFeedback, 0, len(records))
	var problems []error
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		rec.Timestamp = rec.Timestamp.UTC()
		if err := rec.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("record %d: %w", i+1, err))
			continue
		}
		if seen[rec.ID] {
			problems = append(problems, fmt.Errorf("record %d (%s): %w", i+1, rec.ID, errDuplicateID))
			continue
		}
		seen[rec.ID] = true
		valid = append(valid, rec)
	}
	return valid, problems
}
