// migrate aplica las migraciones embebidas y, opcionalmente, crea una organización inicial.
//
// Uso: go run ./cmd/migrate [-org "Nombre de la organización"]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/productivity-api/internal/domain/repository"
	"github.com/jhoicas/productivity-api/internal/infrastructure/postgres"
	"github.com/jhoicas/productivity-api/pkg/config"
	"github.com/jhoicas/productivity-api/pkg/logger"
)

func main() {
	orgName := flag.String("org", "", "crear esta organización si su slug no existe")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	applied, err := postgres.NewMigrator(pool, log.Zerolog()).Up(ctx)
	if err != nil {
		log.Fatal().Err(err).Int("applied", applied).Msg("migraciones")
	}
	log.Info().Int("applied", applied).Msg("migraciones al día")

	if strings.TrimSpace(*orgName) == "" {
		return
	}
	id, created, err := bootstrapOrganization(ctx, postgres.NewStore(pool), *orgName)
	if err != nil {
		log.Fatal().Err(err).Msg("crear organización")
	}
	log.Info().Str("organization_id", id).Bool("created", created).Msg("organización inicial")
}

// bootstrapOrganization es idempotente: si el slug ya existe devuelve esa organización.
func bootstrapOrganization(ctx context.Context, store repository.DataStore, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	slug := slugify(name)
	if slug == "" {
		return "", false, fmt.Errorf("nombre de organización inválido: %q", name)
	}
	existing, err := store.FindByField(ctx, "organizations", "slug", slug)
	if err != nil {
		return "", false, err
	}
	if len(existing) > 0 {
		return existing[0].ID(), false, nil
	}
	rec, err := store.Create(ctx, "organizations", repository.Record{
		"name":      name,
		"slug":      slug,
		"is_active": true,
		"settings":  map[string]any{},
	})
	if err != nil {
		return "", false, err
	}
	return rec.ID(), true, nil
}

// slugify quita tildes y deja solo [a-z0-9-]: "Café Ñandú S.A." -> "cafe-nandu-s-a".
func slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 120 {
		out = strings.TrimSuffix(out[:120], "-")
	}
	return out
}
