package imports

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "import_runs", "r").
	Project("id", "ID").
	Project("files", "Files").
	Project("format", "Format").
	Project("mode", "Mode").
	Project("update_existing", "UpdateExisting").
	Project("archive_keys", "ArchiveKeys").
	Project("claims_created", "ClaimsCreated").
	Project("claims_updated", "ClaimsUpdated").
	Project("claims_skipped", "ClaimsSkipped").
	Project("claims_failed", "ClaimsFailed").
	Project("details_created", "DetailsCreated").
	Project("details_updated", "DetailsUpdated").
	Project("details_skipped", "DetailsSkipped").
	Project("details_failed", "DetailsFailed").
	Project("started_at", "StartedAt").
	Project("completed_at", "CompletedAt")

var defaultSort = query.SortField{
	Field:      "StartedAt",
	Descending: true,
}

// text[] columns arrive through database/sql in their literal form and are
// decoded by a pgx type map. A Map is not safe for concurrent use.
func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	typeMap := pgtype.NewMap()
	err := s.Scan(
		&r.ID,
		typeMap.SQLScanner(&r.Files),
		&r.Format,
		&r.Mode,
		&r.UpdateExisting,
		typeMap.SQLScanner(&r.ArchiveKeys),
		&r.Claims.Created,
		&r.Claims.Updated,
		&r.Claims.Skipped,
		&r.Claims.Failed,
		&r.Details.Created,
		&r.Details.Updated,
		&r.Details.Skipped,
		&r.Details.Failed,
		&r.StartedAt,
		&r.CompletedAt,
	)
	return r, err
}
