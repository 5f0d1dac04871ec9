package store

import (
	"fmt"
	"time"

	"github.com/pavelanni/pdfquiz/internal/model"
)

// ExportRequests builds an export-ready snapshot of the request log.
// Bodies are dropped unless withBodies is set.
func (s *Store) ExportRequests(limit int, withBodies bool) (model.RequestExport, error) {
	reqs, err := s.ListLLMRequests(limit)
	if err != nil {
		return model.RequestExport{}, fmt.Errorf("list requests: %w", err)
	}
	if !withBodies {
		for i := range reqs {
			reqs[i].RequestBody = ""
			reqs[i].ResponseBody = ""
		}
	}
	if reqs == nil {
		reqs = []model.LLMRequest{}
	}
	return model.RequestExport{
		ExportedAt: time.Now().UTC(),
		Count:      len(reqs),
		Requests:   reqs,
	}, nil
}
