package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/wavemeet/internal/activity"
)

type activityDTO struct {
	Code    string   `json:"code"`
	Label   string   `json:"label"`
	Icon    string   `json:"icon"`
	Prompts []string `json:"prompts,omitempty"`
}

func toActivityDTO(t activity.Type) activityDTO {
	return activityDTO{Code: t.Code(), Label: t.Label(), Icon: t.Icon()}
}

func toActivityDTOWithPrompts(t activity.Type) activityDTO {
	dto := toActivityDTO(t)
	dto.Prompts = t.SuggestedPrompts()
	return dto
}

// ListActivities handles GET /activities.
func ListActivities(c *fiber.Ctx) error {
	all := activity.All()
	items := make([]activityDTO, 0, len(all))
	for _, t := range all {
		items = append(items, toActivityDTOWithPrompts(t))
	}
	return c.JSON(fiber.Map{"activities": items})
}
