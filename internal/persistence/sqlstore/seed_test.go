package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const locationsYAML = `
buildings:
  - id: rec
    name: Recreation Center
    address: 100 Campus Dr
    latitude: 40.1
    longitude: -88.2
  - id: union
    name: " Student Union "
`

func TestLoadBuildingSeedsAndSeed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(locationsYAML), 0o600))

	buildings, err := LoadBuildingSeeds(path)
	require.NoError(t, err)
	require.Len(t, buildings, 2)
	assert.Equal(t, "Student Union", buildings[1].Name)
	require.NotNil(t, buildings[0].Longitude)
	assert.InDelta(t, -88.2, *buildings[0].Longitude, 1e-9)

	store := openTestStore(t)
	n, err := store.SeedBuildings(context.Background(), buildings)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec, err := store.GetBuilding(context.Background(), "rec")
	require.NoError(t, err)
	assert.Equal(t, "100 Campus Dr", rec.Address)
}

func TestParseBuildingSeedsValidates(t *testing.T) {
	t.Parallel()

	_, err := ParseBuildingSeeds([]byte("buildings:\n  - id: rec\n"))
	assert.Error(t, err)

	_, err = ParseBuildingSeeds([]byte("buildings:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseBuildingSeeds([]byte("buildings: ["))
	assert.Error(t, err)

	_, err = LoadBuildingSeeds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
