package usecase

import (
	"context"
	"strings"

	"github.com/jhoicas/productivity-api/internal/domain"
	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

// userSummaryColumns columnas de usuario que se incrustan en otras respuestas.
var userSummaryColumns = []string{"id", "username", "first_name", "last_name"}

// userJoin incrusta el usuario referenciado por localKey bajo as.
func userJoin(localKey, as string) repository.JoinSpec {
	return repository.JoinSpec{
		Collection: "users",
		As:         as,
		LocalKey:   localKey,
		ForeignKey: "id",
		Columns:    userSummaryColumns,
	}
}

// findScoped carga un registro y exige que pertenezca a la organización actual.
// Inexistente → NotFoundError(notFound); de otra organización → ForbiddenError.
func findScoped(ctx context.Context, store repository.DataStore, collection, id, orgID, notFound string) (repository.Record, error) {
	rec, err := store.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewNotFoundError(notFound)
	}
	if rec.String("organization_id") != orgID {
		return nil, domain.NewForbiddenError("Access denied")
	}
	return rec, nil
}

// belongsToOrg indica si el registro existe y es de la organización.
func belongsToOrg(ctx context.Context, store repository.DataStore, collection, id, orgID string) (bool, error) {
	rec, err := store.FindByID(ctx, collection, id)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.String("organization_id") == orgID, nil
}

// requireMember valida que userID exista y sea miembro activo de orgID.
func requireMember(ctx context.Context, store repository.DataStore, userID, orgID, notFound, outside string) error {
	user, err := store.FindByID(ctx, "users", userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.NewValidationError(notFound)
	}
	n, err := store.Count(ctx, "user_organizations", []repository.Filter{
		repository.Eq("user_id", userID),
		repository.Eq("organization_id", orgID),
		repository.Eq("is_active", true),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewValidationError(outside)
	}
	return nil
}

// splitList separa una lista por comas descartando vacíos.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodeAll traduce el error de decodificación a DataAccessError.
func decodeAll[T any](collection string, rows []repository.Record) ([]T, error) {
	out, err := repository.DecodeAll[T](rows)
	if err != nil {
		return nil, domain.NewDataAccessError("decode "+collection, err)
	}
	return out, nil
}

func decodeOne[T any](collection string, rec repository.Record) (*T, error) {
	out, err := repository.Decode[T](rec)
	if err != nil {
		return nil, domain.NewDataAccessError("decode "+collection, err)
	}
	return out, nil
}

// actor identifica a quien dispara un evento de tiempo real.
func actor(p *domain.Principal) map[string]any {
	return map[string]any{"id": p.UserID, "name": p.FullName()}
}
