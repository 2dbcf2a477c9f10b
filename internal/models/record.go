package models

// FlatRecord is one warehouse row: an application joined with one of its groups.
type FlatRecord struct {
	AppID            string `json:"app_id"`
	AppName          string `json:"app_name"`
	AppLabel         string `json:"app_label"`
	GroupID          string `json:"group_id"`
	GroupName        string `json:"group_name"`
	GroupDescription string `json:"group_description"`
}

// FlatRecordColumns lists the destination columns in the order returned by Values.
var FlatRecordColumns = []string{
	"app_id",
	"app_name",
	"app_label",
	"group_id",
	"group_name",
	"group_description",
}

// Values returns the record's fields in FlatRecordColumns order.
func (r FlatRecord) Values() []interface{} {
	return []interface{}{
		r.AppID,
		r.AppName,
		r.AppLabel,
		r.GroupID,
		r.GroupName,
		r.GroupDescription,
	}
}

// Map returns the record keyed by column name, the shape streaming insert APIs expect.
func (r FlatRecord) Map() map[string]interface{} {
	values := r.Values()
	row := make(map[string]interface{}, len(FlatRecordColumns))
	for i, column := range FlatRecordColumns {
		row[column] = values[i]
	}
	return row
}

// Batch is the ordered set of records produced for one application.
type Batch []FlatRecord

// Len returns the number of records in the batch
func (b Batch) Len() int {
	return len(b)
}
