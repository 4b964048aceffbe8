package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"imagerank/imageprocessor"
	"imagerank/logging"
	"imagerank/types"
)

// RankDirectory scores every entry of the candidate directory against the
// reference image. Records are returned in directory order. The first
// candidate that fails to load aborts the run unless SkipUnreadable is set.
func RankDirectory(options RankOptions) ([]types.ScoreRecord, error) {
	reference, err := imageprocessor.LoadImage(options.ReferencePath)
	defer reference.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to load reference image: %w", err)
	}

	scorer, err := imageprocessor.NewScorer(reference)
	if err != nil {
		return nil, err
	}
	defer scorer.Close()

	entries, err := os.ReadDir(options.CandidateDir)
	if err != nil {
		return nil, fmt.Errorf("cannot list candidate directory: %w", err)
	}

	logging.DebugLog("Ranking %d candidates in %s against %s",
		len(entries), options.CandidateDir, options.ReferencePath)

	records := make([]types.ScoreRecord, 0, len(entries))
	for i, entry := range entries {
		path := filepath.Join(options.CandidateDir, entry.Name())

		score, err := scoreCandidate(scorer, path)
		if err != nil {
			if !options.SkipUnreadable {
				return nil, fmt.Errorf("failed to score candidate %s: %w", entry.Name(), err)
			}
			logging.LogWarning("Skipping unreadable candidate %s: %v", path, err)
		} else {
			logging.DebugLog("Scored %s: %.6f", entry.Name(), score)
			records = append(records, types.ScoreRecord{Name: entry.Name(), Score: score})
		}

		if options.Progress != nil {
			options.Progress(i+1, len(entries))
		}
	}

	return records, nil
}

func scoreCandidate(scorer *imageprocessor.Scorer, path string) (float64, error) {
	candidate, err := imageprocessor.LoadImage(path)
	defer candidate.Close()
	if err != nil {
		return 0, err
	}

	return scorer.Score(candidate)
}
