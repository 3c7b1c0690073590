package ports

import "context"

// Notifier publica eventos de tiempo real. Es fire-and-forget: los fallos se
// registran en el adaptador y nunca afectan a la operación que los originó.
type Notifier interface {
	// SendToRoom emite event a todos los suscriptores de room (ej. "org:<id>", "task:<id>").
	SendToRoom(ctx context.Context, room, event string, data map[string]any)
	// SendToUser emite a "user:<id>"; si el usuario no está conectado se encola
	// en su lista de notificaciones pendientes.
	SendToUser(ctx context.Context, userID, event string, data map[string]any)
}

// NopNotifier descarta los eventos.
type NopNotifier struct{}

func (NopNotifier) SendToRoom(context.Context, string, string, map[string]any) {}
func (NopNotifier) SendToUser(context.Context, string, string, map[string]any) {}
