package inits

import (
	"github.com/hashicorp/go-memdb"
)

const ApplicantTable = "applicant"

// DBInit creates the in-memory database holding cooldown reservations.
func DBInit() (*memdb.MemDB, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			ApplicantTable: {
				Name: ApplicantTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:         "id",
						Unique:       true,
						Indexer:      &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
						AllowMissing: false,
					},
				},
			},
		},
	}
	return memdb.NewMemDB(schema)
}
