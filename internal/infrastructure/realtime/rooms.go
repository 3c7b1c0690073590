package realtime

import (
	"context"
	"strings"

	"github.com/jhoicas/productivity-api/internal/domain/repository"
)

// entityRooms prefijo de sala → colección con organization_id.
var entityRooms = map[string]string{
	"task":     "tasks",
	"order":    "orders",
	"customer": "customers",
}

// TenantRooms autoriza las salas de entidad solo si el registro pertenece a la
// organización activa del cliente. Prefijos desconocidos se rechazan.
func TenantRooms(store repository.DataStore) RoomAuthorizer {
	return func(ctx context.Context, c ClientInfo, room string) bool {
		prefix, id, _ := strings.Cut(room, ":")
		coll, ok := entityRooms[prefix]
		if !ok || c.OrganizationID == "" {
			return false
		}
		rec, err := store.FindByID(ctx, coll, id)
		if err != nil || rec == nil {
			return false
		}
		return rec.String("organization_id") == c.OrganizationID
	}
}
