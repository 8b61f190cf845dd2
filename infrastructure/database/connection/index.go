package connection

import (
	"faceguard.io/infrastructure/database/connection/cache"
	"faceguard.io/infrastructure/database/connection/datastore"
)

func ConnectToDatabase() {
	datastore.ConnectToDatabase()
	cache.ConnectToCache()
}
