package transport

import "context"

// PageFunc fetches one page of a listing. It receives the continuation
// token of the page to fetch (empty for the first page) and returns the
// token for the next page, or an empty string when the source reports no
// further pages.
type PageFunc func(ctx context.Context, pageToken string) (next string, err error)

// ForEachPage drives a token-paginated listing to completion. It makes no
// assumption about page count; iteration stops on the first page that
// carries no continuation token, or on the first error.
func ForEachPage(ctx context.Context, fn PageFunc) error {
	token := ""
	for {
		next, err := fn(ctx, token)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		token = next
	}
}
