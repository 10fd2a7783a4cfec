package favorites

import "encoding/json"

func marshalIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalIDs(raw string, ids *[]string) error {
	return json.Unmarshal([]byte(raw), ids)
}
