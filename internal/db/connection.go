/*******************************************************************************
*
* Copyright 2025 SAP SE
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

package db

import (
	"database/sql"

	gorp "github.com/go-gorp/gorp/v3"

	"github.com/sapcc/go-bits/easypg"
	"github.com/sapcc/go-bits/osext"
	"github.com/sapcc/go-bits/sqlext"
)

// Configuration returns the easypg.Configuration object that func Init()
// needs to initialize the DB connection.
func Configuration() easypg.Configuration {
	return easypg.Configuration{
		Migrations: sqlMigrations,
	}
}

// Init initializes the connection to the database. Per spec.md §6, DB_USER
// and DB_PASS (or equivalents) are the only environment surface the engine
// itself requires; the remaining connection parameters have sensible
// defaults for local development.
func Init() (*sql.DB, error) {
	dbURL, err := easypg.URLFrom(easypg.URLParts{
		HostName:          osext.GetenvOrDefault("PLACEMENT_DB_HOSTNAME", "localhost"),
		Port:              osext.GetenvOrDefault("PLACEMENT_DB_PORT", "5432"),
		UserName:          osext.GetenvOrDefault("DB_USER", "postgres"),
		Password:          osext.GetenvOrDefault("DB_PASS", ""),
		ConnectionOptions: osext.GetenvOrDefault("PLACEMENT_DB_CONNECTION_OPTIONS", ""),
		DatabaseName:      osext.GetenvOrDefault("PLACEMENT_DB_NAME", "placement"),
	})
	if err != nil {
		return nil, err
	}
	return easypg.Connect(dbURL, Configuration())
}

// InitORM wraps a database connection into a gorp.DbMap instance.
func InitORM(dbConn *sql.DB) *gorp.DbMap {
	// ensure that claim execution does not starve other processes for DB connections
	dbConn.SetMaxOpenConns(16)

	dbMap := &gorp.DbMap{Db: dbConn, Dialect: gorp.PostgresDialect{}}
	initGorp(dbMap)
	return dbMap
}

// Interface provides the common methods that both SQL connections and
// transactions implement. The catalog, query and executor packages take
// this instead of *gorp.DbMap or *gorp.Transaction so that they work the
// same way inside or outside the executor's transaction.
type Interface interface {
	// from database/sql
	sqlext.Executor

	// from github.com/go-gorp/gorp/v3
	Insert(args ...any) error
	Update(args ...any) (int64, error)
	Delete(args ...any) (int64, error)
	Select(i any, query string, args ...any) ([]any, error)
}
