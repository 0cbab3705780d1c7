package server

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"blueprint/internal/asset"
	"blueprint/internal/blobstore"
)

var projectIDRegex = regexp.MustCompile(`^bp-[0-9a-z]{4}$`)

func validateProjectID(id string) bool {
	return projectIDRegex.MatchString(id)
}

func validateAssetID(id string) error {
	if err := blobstore.ValidateID(id); err != nil {
		return badRequestCode(err, ErrCodeInvalidID)
	}
	return nil
}

// validateLogoRef accepts empty, internal, data, blob and http(s) references.
func validateLogoRef(ref string) error {
	parsed := asset.ParseReference(ref)
	switch parsed.Kind {
	case asset.KindEmpty, asset.KindData, asset.KindBlob, asset.KindRemote:
		return nil
	case asset.KindInternal:
		return validateAssetIDRef(parsed.ID)
	default:
		return badRequestCode(fmt.Errorf("unsupported asset reference %q", ref), ErrCodeInvalidRef)
	}
}

func validateAssetIDRef(id string) error {
	if err := blobstore.ValidateID(id); err != nil {
		return badRequestCode(fmt.Errorf("invalid internal reference: %w", err), ErrCodeInvalidRef)
	}
	return nil
}

func validateNotificationAction(action string) error {
	switch strings.TrimSpace(action) {
	case "dismiss", "pause", "resume", "undo":
		return nil
	default:
		return badRequestCode(fmt.Errorf("unknown notification action %q", action), ErrCodeInvalidAction)
	}
}

func isQuotaExceeded(err error) bool {
	return errors.Is(err, blobstore.ErrQuotaExceeded)
}
