package ats

import (
	"github.com/goliatone/go-router"
)

// MergeTemplateData injects the session globals into view data so every page
// can reference current_user and authenticated without wiring them per route.
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	if data == nil {
		data = router.ViewContext{}
	}

	if user, ok := GetRouterUser(ctx, ""); ok {
		data[TemplateUserKey] = user
		data["authenticated"] = true
	} else {
		data["authenticated"] = false
	}

	return data
}
