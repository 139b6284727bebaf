// Package jobs defines the task types shared by the API and the prefetch
// worker.
package jobs

const TaskPrefetchArchive = "archive:prefetch"

type PrefetchArchivePayload struct {
	Organization string `json:"organization"`
	Repository   string `json:"repository"`
	Ref          string `json:"ref,omitempty"`
	ZipballURL   string `json:"zipball_url,omitempty"`
}
