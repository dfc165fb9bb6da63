package matching

import (
	"math/rand"

	"github.com/oggyb/campus-connect/internal/db"
)

// Eligible returns the profiles viewerID may be shown, freshly shuffled.
//
// Excluded:
//   - the viewer's own profile
//   - profiles missing name, department, cohort or bio (verification state is
//     not considered)
//   - targets the viewer already liked or super liked
//
// Skips are not persisted, so a skipped profile comes back on the next call.
func Eligible(viewerID string, profiles []db.Profile, decisionsByViewer []db.Decision) []db.Profile {
	liked := make(map[string]struct{}, len(decisionsByViewer))
	for _, d := range decisionsByViewer {
		if d.LikerID == viewerID {
			liked[d.LikedID] = struct{}{}
		}
	}

	out := make([]db.Profile, 0, len(profiles))
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		if p.ID == viewerID || !p.IsDiscoverable() {
			continue
		}
		if _, ok := liked[p.ID]; ok {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}

	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
