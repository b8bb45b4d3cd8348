package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// validationErrorMessage returns a user-friendly message for binding
// failures.
func validationErrorMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			switch ve.Field() {
			case "ContentType":
				switch ve.Tag() {
				case "required":
					return "content_type is required"
				case "oneof":
					return "content_type must be one of: text, big_text, html"
				}
			case "Image":
				return "image is required"
			case "ScreenID":
				return "screen_id is required"
			case "ItemIDs":
				return "item_ids is required"
			case "RefreshRate":
				return "refresh_rate must be between 60 and 86400 seconds"
			}
		}
	}
	return "Invalid request"
}
