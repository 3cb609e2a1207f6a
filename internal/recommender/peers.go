package recommender

import (
	"sort"

	"github.com/google/uuid"

	"github.com/temcen/shoprec/pkg/models"
)

// PeerCandidate is a user whose history overlaps enough with the target's to
// contribute collaborative signal.
type PeerCandidate struct {
	UserID       uuid.UUID
	Interactions []models.Interaction
	Shared       int
	Total        int
	Similarity   float64
}

// FindPeers keeps population members sharing at least MinSharedProducts
// products with targetIDs and having at least MinPeerInteractions
// interactions, ranked by shared/(|target|+total). Ties are ordered by user ID.
func FindPeers(self uuid.UUID, targetIDs []int64, population []PeerUser, cfg Config) []PeerCandidate {
	if len(targetIDs) == 0 || len(population) == 0 {
		return nil
	}

	target := make(map[int64]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		target[id] = struct{}{}
	}

	var peers []PeerCandidate
	for _, user := range population {
		if user.UserID == self {
			continue
		}

		total := len(user.Interactions)
		if total < cfg.MinPeerInteractions {
			continue
		}

		shared := make(map[int64]struct{})
		for _, interaction := range user.Interactions {
			if _, ok := target[interaction.ProductID]; ok {
				shared[interaction.ProductID] = struct{}{}
			}
		}
		if len(shared) < cfg.MinSharedProducts {
			continue
		}

		peers = append(peers, PeerCandidate{
			UserID:       user.UserID,
			Interactions: user.Interactions,
			Shared:       len(shared),
			Total:        total,
			Similarity:   safeDiv(float64(len(shared)), float64(len(target)+total)),
		})
	}

	sort.SliceStable(peers, func(i, j int) bool {
		if peers[i].Similarity != peers[j].Similarity {
			return peers[i].Similarity > peers[j].Similarity
		}
		return peers[i].UserID.String() < peers[j].UserID.String()
	})

	return truncate(peers, cfg.MaxPeers)
}
