package relational

import (
	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Provider:    models.ProviderRelational,
			DisplayName: "Relational SQL",
			Description: "PostgreSQL, MySQL, and SQL Server",
		},
		Adapter: Adapter{},
	})
}
