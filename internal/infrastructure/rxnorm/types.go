package rxnorm

import (
	"fmt"
	"strconv"
	"strings"
)

// RxNav wire types. Only the fields the mapper consumes are declared.

// idGroupResponse is the body of GET /rxcui.json?name=
type idGroupResponse struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxnormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

// approximateResponse is the body of GET /approximateTerm.json
type approximateResponse struct {
	ApproximateGroup struct {
		Candidate []approximateCandidate `json:"candidate"`
	} `json:"approximateGroup"`
}

type approximateCandidate struct {
	Rxcui string  `json:"rxcui"`
	Term  string  `json:"term"`
	Score flexInt `json:"score"`
}

// relatedResponse is the body of GET /rxcui/{id}/related.json
type relatedResponse struct {
	RelatedGroup struct {
		ConceptGroup []struct {
			TTY               string `json:"tty"`
			ConceptProperties []struct {
				Rxcui string `json:"rxcui"`
				Name  string `json:"name"`
				TTY   string `json:"tty"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"relatedGroup"`
}

// flexInt decodes an integer that RxNav sometimes serializes as a JSON
// string ("100") and sometimes as a number (100).
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// Scores like "92.0" show up in some responses
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("cannot parse %q as score", string(data))
		}
		n = int(fl)
	}
	*f = flexInt(n)
	return nil
}
