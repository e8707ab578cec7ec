package services

import (
	"multimodal-rag-platform/internal/index"
	"multimodal-rag-platform/models"
)

// SearchDocuments performs an exact nearest-neighbor scan of the index and
// returns the topK closest records as hits, ranked by ascending distance.
// Similarity is reported as 1/(1+distance), so ranking order is preserved
// and scores fall in (0,1]. A nil query vector or empty index yields an
// empty result, never an error.
//
// Index positions that fall outside the record list are skipped: after a
// delete the index keeps vectors for removed records, so positions can
// dangle until the next full ingest.
func SearchDocuments(queryVector []float32, idx *index.Flat, records []models.DocumentRecord, topK int) []models.Hit {
	if queryVector == nil || idx.Len() == 0 {
		return nil
	}

	var hits []models.Hit
	for _, result := range idx.Search(queryVector, topK) {
		if result.Position >= len(records) {
			continue
		}
		hits = append(hits, models.Hit{
			DocumentRecord: records[result.Position],
			Similarity:     1.0 / (1.0 + result.Distance),
		})
	}
	return hits
}

// SelectBestHits applies the answer-synthesis selection policy: the single
// highest-ranked image hit if one exists, else the highest-ranked text hit.
// Text and image hits are never combined.
func SelectBestHits(hits []models.Hit) (imageHit, textHit *models.Hit) {
	for i := range hits {
		switch hits[i].ContentType {
		case models.ContentTypeImage:
			if imageHit == nil {
				imageHit = &hits[i]
			}
		case models.ContentTypeText:
			if textHit == nil {
				textHit = &hits[i]
			}
		}
	}
	if imageHit != nil {
		return imageHit, nil
	}
	return nil, textHit
}
