package domain

import "errors"

var (
	// ErrJournalNotFound reports that no impact factor is known for a journal.
	ErrJournalNotFound = errors.New("journal not found")
	// ErrDateParse reports an unparsable publication date.
	ErrDateParse = errors.New("unparsable publication date")
	// ErrFetch wraps transport failures of external collaborators.
	ErrFetch = errors.New("fetch failed")
)
