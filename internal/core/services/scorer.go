package services

import "github.com/custodia-labs/shelfsync/internal/core/domain"

// scoreWeight is one term of the completeness score.
type scoreWeight struct {
	field   domain.Field
	weight  int
	present func(r *domain.Record) bool
}

// completenessWeights must stay non-negative so adding information never lowers a score.
var completenessWeights = []scoreWeight{
	{domain.FieldAuthor, 10, func(r *domain.Record) bool { return r.Author != "" }},
	{domain.FieldPublication, 10, func(r *domain.Record) bool { return r.Publication != "" }},
	{domain.FieldDescription, 10, func(r *domain.Record) bool { return r.Description != "" }},
	{domain.FieldThumbnail, 5, func(r *domain.Record) bool { return r.Thumbnail != "" }},
	{domain.FieldPublishedAt, 5, func(r *domain.Record) bool { return !r.PublishedAt.IsZero() }},
	{domain.FieldWordCount, 5, func(r *domain.Record) bool { return r.WordCount > 0 }},
	{domain.FieldBody, 20, func(r *domain.Record) bool { return r.Body != "" }},
	{domain.FieldTopics, 5, func(r *domain.Record) bool { return len(r.Topics) > 0 }},
	{domain.FieldGenres, 5, func(r *domain.Record) bool { return len(r.Genres) > 0 }},
}

// Score rates how complete a record is. It is only a tie-break signal for
// merge primary selection.
func Score(r domain.Record) int {
	score := 0
	for _, w := range completenessWeights {
		if w.present(&r) {
			score += w.weight
		}
	}
	return score
}

// EstimateReadingMinutes estimates reading time at 225 words per minute.
func EstimateReadingMinutes(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + 224) / 225
}
