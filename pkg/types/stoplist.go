package types

import "encoding/json"

// StopList holds stop sequences. Clients may send either a single JSON
// string or an array of strings; it always marshals back as an array.
type StopList []string

func (s *StopList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = nil
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = StopList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = StopList(many)
	return nil
}
