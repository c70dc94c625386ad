package wordpress

import "github.com/bilgisen/wpsync/internal/models"

// Remote post statuses written by this service.
const (
	RemotePublish = "publish"
	RemoteDraft   = "draft"
)

// MapStatus converts a local publish status to the WordPress status. It is the
// only place the mapping lives; every create, update and batch push goes
// through it.
func MapStatus(s models.PublishStatus) string {
	switch s {
	case models.StatusPublished:
		return RemotePublish
	case models.StatusDraft:
		return RemoteDraft
	default:
		return RemoteDraft
	}
}

// ParseRemoteStatus converts a WordPress status back to the local vocabulary.
// Anything that is not publicly visible (private, pending, future) is a draft.
func ParseRemoteStatus(remote string) models.PublishStatus {
	if remote == RemotePublish {
		return models.StatusPublished
	}
	return models.StatusDraft
}
