package annotations

import (
	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "annotations", "a").
	Project("id", "ID").
	Project("claim_id", "ClaimID").
	Project("kind", "Kind").
	Project("category", "Category").
	Project("note", "Note").
	Project("author_id", "AuthorID").
	Project("created_at", "CreatedAt").
	Join("public", "users", "u", "JOIN", "u.id = a.author_id").
	Project("username", "Author")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

func scanAnnotation(s repository.Scanner) (Annotation, error) {
	var a Annotation
	err := s.Scan(
		&a.ID,
		&a.ClaimID,
		&a.Kind,
		&a.Category,
		&a.Note,
		&a.AuthorID,
		&a.CreatedAt,
		&a.Author,
	)
	return a, err
}
