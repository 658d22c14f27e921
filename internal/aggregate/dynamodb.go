package aggregate

import (
	"github.com/samber/lo"

	"github.com/yairfalse/awslimits/pkg/sample"
)

// Table is the provisioned throughput of one DynamoDB table.
type Table struct {
	Name          string
	ReadCapacity  *int64
	WriteCapacity *int64
}

// DynamoDBUsage reports the largest single-table and the account-wide
// provisioned read and write capacity.
//
// names is the table listing. A nil listing means the upstream response had no
// table-name collection at all, which differs from an account with no tables.
func DynamoDBUsage(names []string, tables []Table) (*sample.Set, error) {
	if names == nil {
		return nil, shapeError(FamilyDynamoDB, "TableNames", "not present in table listing")
	}

	byName := lo.KeyBy(tables, func(t Table) string { return t.Name })

	reads := make([]int64, 0, len(names))
	writes := make([]int64, 0, len(names))
	for _, name := range names {
		table, ok := byName[name]
		if !ok {
			return nil, shapeError(FamilyDynamoDB, "Table", "no description for listed table %q", name)
		}
		if table.ReadCapacity == nil || table.WriteCapacity == nil {
			return nil, shapeError(FamilyDynamoDB, "ProvisionedThroughput", "not set on table %q", name)
		}
		reads = append(reads, *table.ReadCapacity)
		writes = append(writes, *table.WriteCapacity)
	}

	s := sample.NewSet()
	s.Add("dynamodb.read_capacity_units_individual_table", lo.Max(reads))
	s.Add("dynamodb.write_capacity_units_individual_table", lo.Max(writes))
	s.Add("dynamodb.read_capacity_units_per_account", lo.Sum(reads))
	s.Add("dynamodb.write_capacity_units_per_account", lo.Sum(writes))
	return s, nil
}
