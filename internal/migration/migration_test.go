package migration

import (
	"io/fs"
	"strings"
	"testing"

	dbpkg "github.com/ramonsune/custodia360/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 2, ups)
	assert.Equal(t, ups, downs)
}

func TestApplyAutomigratesSQLite(t *testing.T) {
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)

	require.NoError(t, Apply(conn, zap.NewNop()))
	assert.True(t, conn.Migrator().HasTable("onboarding_drafts"))
	assert.True(t, conn.Migrator().HasTable("pending_contracts"))
}
