package session

import "encoding/json"

func mustMarshal(record Record) []byte {
	data, err := json.Marshal(record)
	if err != nil {
		// Record is a plain struct; this cannot fail at runtime
		panic(err)
	}
	return data
}

func unmarshalRecord(data []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, err
	}
	return record, nil
}
