package uploads

import (
	"os"
	"path/filepath"
)

// ArtifactCandidates lists where the converter output may appear, in the
// order they are checked: next to the staged input, in the working
// directory, then in the uploads directory
func ArtifactCandidates(stagedPath, workDir, uploadsDir string) []string {
	return []string{
		filepath.Join(filepath.Dir(stagedPath), ArtifactName),
		filepath.Join(workDir, ArtifactName),
		filepath.Join(uploadsDir, ArtifactName),
	}
}

// FindArtifact returns the first candidate that exists as a regular file
func FindArtifact(candidates []string) (string, bool) {
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
