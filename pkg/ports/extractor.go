package ports

import "context"

// Extraction method tags. Input slots are annotated with one of these so
// the retrieval step can dispatch without knowing the slot type.
const (
	ExtractFromURL             = "fromUrl"
	ExtractFromJiraIssue       = "fromJiraIssue"
	ExtractFromJiraIssues      = "fromJiraIssues"
	ExtractFromJQLQuery        = "fromJqlQuery"
	ExtractFromConfluencePage  = "fromConfluencePage"
	ExtractFromConfluencePages = "fromConfluencePages"
	ExtractFromUploadedFiles   = "fromUploadedFiles"
	ExtractFromMultilineText   = "fromMultilineText"
)

// Extractor turns a source descriptor into plain text using the named
// extraction method. src is a string for most methods, or a list of
// uploaded-file descriptors for ExtractFromUploadedFiles.
type Extractor interface {
	Extract(ctx context.Context, method string, src any) (string, error)
}
