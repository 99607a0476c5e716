package elastic

import (
	"github.com/codeoncesoftware/grizzly-core/pkg/adapters/datasource"
	"github.com/codeoncesoftware/grizzly-core/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Provider:    models.ProviderSearch,
			DisplayName: "Elasticsearch",
			Description: "Search engine: Elasticsearch 7.x/8.x",
		},
		Adapter: Adapter{},
	})
}
