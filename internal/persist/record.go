package persist

import (
	"encoding/json"
	"strconv"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/domain"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
)

// Record is the stored representation of a reconciled title.
type Record struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Genres        []string         `json:"genres,omitempty"`
	Type          domain.TitleType `json:"type"`
	Main          domain.TTB       `json:"main"`
	Extras        domain.TTB       `json:"extras"`
	Completionist domain.TTB       `json:"completionist"`
}

// NewRecord snapshots a title for storage.
func NewRecord(t *domain.Title) Record {
	return Record{
		ID:            t.ID,
		Name:          t.Name,
		Genres:        t.Genres,
		Type:          t.Type,
		Main:          t.Main,
		Extras:        t.Extras,
		Completionist: t.Completionist,
	}
}

// RowKey is the store row key of a title.
func RowKey(t *domain.Title) string {
	return strconv.FormatInt(t.ID, 10)
}

// RecordOperations is the default OperationFactory: a single upsert of the
// title's Record under its id.
func RecordOperations(t *domain.Title) ([]store.Operation, error) {
	data, err := json.Marshal(NewRecord(t))
	if err != nil {
		return nil, err
	}
	return []store.Operation{store.InsertOrReplace(RowKey(t), data)}, nil
}
