package mongodb

import (
	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Provider:    models.ProviderDocument,
			DisplayName: "MongoDB",
			Description: "Document store: MongoDB 4.x+, Atlas, DocumentDB",
		},
		Adapter: Adapter{},
	})
}
