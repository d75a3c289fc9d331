package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func uniqueKeys(t *testing.T, name string) []string {
	t.Helper()
	def, ok := collections()[name]
	require.True(t, ok, name)

	var keys []string
	for _, idx := range def.Indexes {
		if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
			continue
		}
		for _, k := range idx.Keys.(bson.D) {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

func TestUniqueIndexes(t *testing.T) {
	assert.Equal(t, []string{"bus_number"}, uniqueKeys(t, "buses"))
	assert.Equal(t, []string{"ticket_id"}, uniqueKeys(t, "bookings"))
	assert.Equal(t, []string{"email"}, uniqueKeys(t, "users"))
}

func TestValidatorsRequireCoreFields(t *testing.T) {
	required := func(name string) []string {
		schema := collections()[name].Validator["$jsonSchema"].(bson.M)
		return schema["required"].([]string)
	}

	assert.Subset(t, required("buses"), []string{"seats", "available_seats", "total_seats"})
	assert.Subset(t, required("bookings"), []string{"ticket_id", "user", "bus", "is_cancelled"})
	assert.Subset(t, required("users"), []string{"email", "password"})
}
