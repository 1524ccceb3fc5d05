package dcad

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidAccountID marks account id validation failures. These are
// caller errors and are never retried.
var ErrInvalidAccountID = fmt.Errorf("invalid account id")

const accountIDLength = 17

var accountIDRegex = regexp.MustCompile(`^[A-Z0-9]{17}$`)

// NormalizeAccountID uppercases and strips whitespace from a raw
// account id and validates that the result is a 17-character
// alphanumeric parcel identifier.
func NormalizeAccountID(raw string) (string, error) {
	acct := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if acct == "" {
		return "", fmt.Errorf("%w: account id is required", ErrInvalidAccountID)
	}
	if len(acct) != accountIDLength {
		return "", fmt.Errorf(
			"%w: must be %d characters, got %d",
			ErrInvalidAccountID, accountIDLength, len(acct),
		)
	}
	if !accountIDRegex.MatchString(acct) {
		return "", fmt.Errorf("%w: must contain only letters and digits", ErrInvalidAccountID)
	}
	return acct, nil
}
