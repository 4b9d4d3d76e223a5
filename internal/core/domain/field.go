package domain

// Field names a canonical record field for authority and merge rules.
type Field string

// Record fields covered by authority policies and the merge table.
const (
	FieldExternalIDs Field = "external_ids"
	FieldTitle       Field = "title"
	FieldAuthor      Field = "author"
	FieldPublication Field = "publication"
	FieldDescription Field = "description"
	FieldThumbnail   Field = "thumbnail"
	FieldLink        Field = "link"
	FieldISBN        Field = "isbn"
	FieldBody        Field = "body"
	FieldPublishedAt Field = "published_at"
	FieldCompletedAt Field = "completed_at"
	FieldWordCount   Field = "word_count"
	FieldProgress    Field = "progress"
	FieldStatus      Field = "status"
	FieldRating      Field = "rating"
	FieldFormat      Field = "format"
	FieldLocation    Field = "location"
	FieldArchived    Field = "archived"
	FieldStarred     Field = "starred"
	FieldTopics      Field = "topics"
	FieldGenres      Field = "genres"
	FieldTags        Field = "tags"
)
