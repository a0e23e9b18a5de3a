// Package all links every built-in storage backend into the factory. Import
// it for its side effects:
//
//	import _ "dataunifier/internal/storage/all"
//
// Kinds made available: postgres, sqlite, mssql, mysql.
package all

import (
	_ "dataunifier/internal/storage/mssql"
	_ "dataunifier/internal/storage/mysql"
	_ "dataunifier/internal/storage/postgres"
	_ "dataunifier/internal/storage/sqlite"
)
