package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasourceRecord_Validate(t *testing.T) {
	valid := DatasourceRecord{
		Provider:            ProviderDocument,
		ConnectionMode:      ModePooled,
		LogicalDatabaseName: "shop",
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*DatasourceRecord)
	}{
		{"cloud uri without uri", func(r *DatasourceRecord) { r.ConnectionMode = ModeCloudURI }},
		{"host port without host", func(r *DatasourceRecord) { r.ConnectionMode = ModeHostPort; r.Port = 27017 }},
		{"host port without port", func(r *DatasourceRecord) { r.ConnectionMode = ModeHostPort; r.Host = "db" }},
		{"unknown mode", func(r *DatasourceRecord) { r.ConnectionMode = "p2p" }},
		{"unknown provider", func(r *DatasourceRecord) { r.Provider = "graph" }},
		{"relational without dialect", func(r *DatasourceRecord) { r.Provider = ProviderRelational }},
		{"relational unknown dialect", func(r *DatasourceRecord) { r.Provider = ProviderRelational; r.Dialect = "oracle" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid
			tt.mutate(&record)
			assert.Error(t, record.Validate())
		})
	}
}

func TestDatasourceRecord_DatabaseName(t *testing.T) {
	record := DatasourceRecord{
		ConnectionMode:       ModePooled,
		LogicalDatabaseName:  "shop",
		PhysicalDatabaseName: "ada_shop_0123456789abcdef",
	}
	assert.Equal(t, "ada_shop_0123456789abcdef", record.DatabaseName())

	record.ConnectionMode = ModeHostPort
	assert.Equal(t, "shop", record.DatabaseName())

	record.ConnectionMode = ModePooled
	record.PhysicalDatabaseName = ""
	assert.Equal(t, "shop", record.DatabaseName())
}

func TestDatasourceRecord_ConnectionParamsEqual(t *testing.T) {
	a := DatasourceRecord{Host: "db", Port: 5432, Username: "svc", Password: "x"}
	b := a
	assert.True(t, a.ConnectionParamsEqual(&b))

	b.Password = "y"
	assert.False(t, a.ConnectionParamsEqual(&b))

	// Non-connection fields don't matter.
	c := a
	c.Name = "renamed"
	c.LogicalDatabaseName = "other"
	assert.True(t, a.ConnectionParamsEqual(&c))
}
