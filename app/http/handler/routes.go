package handler

import (
	"context"
	"helixclips/app/client/twitch"
	"helixclips/app/repository/catalog"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type ClipsAPI interface {
	GetClips(ctx context.Context, params *twitch.GetClipsParams) (*twitch.ClipPage, error)
	CreateClip(ctx context.Context, params twitch.CreateClipParams) (string, error)
}

type Catalog interface {
	Get(ctx context.Context, id string) (*catalog.Entry, error)
	List(ctx context.Context, q catalog.ListQuery) ([]*catalog.Entry, error)
	Count(ctx context.Context, q catalog.ListQuery) (int, error)
	Ping(ctx context.Context) error
}

// MediaLinker signs download links for archived clip media.
type MediaLinker interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const mediaURLExpiry = time.Hour

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterRoutes mounts the API. media may be nil when object storage is not configured.
func RegisterRoutes(app *fiber.App, clips ClipsAPI, cat Catalog, media MediaLinker) {
	app.Get("/healthz", LivenessProbe())
	app.Get("/health", HealthCheck(cat))
	app.Get("/clips", ListClips(clips))
	app.Post("/clips", CreateClip(clips))
	app.Get("/catalog", ListCatalog(cat))
	app.Get("/catalog/:id", GetCatalogClip(cat, media))
}

func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

func HealthCheck(cat Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := cat.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "catalog unavailable")
		}
		return c.JSON(fiber.Map{"status": "healthy"})
	}
}

// ListClips proxies a Helix clip listing. Exactly one of broadcaster_id,
// game_id or id (repeatable) must be given.
func ListClips(clips ClipsAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		params := &twitch.GetClipsParams{
			After:  c.Query("after"),
			Before: c.Query("before"),
		}

		ids := lo.Map(c.Context().QueryArgs().PeekMulti("id"), func(b []byte, _ int) string {
			return string(b)
		})

		filters := 0
		if v := c.Query("broadcaster_id"); v != "" {
			filters++
			params.FilterType = twitch.ClipFilterBroadcaster
			params.IDs = []string{v}
		}
		if v := c.Query("game_id"); v != "" {
			filters++
			params.FilterType = twitch.ClipFilterGame
			params.IDs = []string{v}
		}
		if len(ids) > 0 {
			filters++
			params.FilterType = twitch.ClipFilterID
			params.IDs = ids
		}
		if filters != 1 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FILTER", "exactly one of broadcaster_id, game_id or id is required")
		}

		first := c.QueryInt("first", 0)
		if first == 0 && c.Query("first") != "" && c.Query("first") != "0" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FIRST", "invalid first")
		}
		params.First = first

		page, err := clips.GetClips(c.UserContext(), params)
		if err != nil {
			return writeServiceError(c, err)
		}

		return c.JSON(page)
	}
}

type createClipRequest struct {
	BroadcasterID string `json:"broadcaster_id" validate:"required,numeric"`
	HasDelay      bool   `json:"has_delay"`
}

func CreateClip(clips ClipsAPI) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createClipRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BROADCASTER", "broadcaster_id must be a numeric user id")
		}

		id, err := clips.CreateClip(c.UserContext(), twitch.CreateClipParams{
			BroadcasterID: req.BroadcasterID,
			HasDelay:      req.HasDelay,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

func ListCatalog(cat Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		offset := c.QueryInt("offset", 0)
		if limit <= 0 || limit > 100 || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_RANGE", "limit must be 1..100 and offset >= 0")
		}

		q := catalog.ListQuery{
			BroadcasterID: c.Query("broadcaster_id"),
			GameID:        c.Query("game_id"),
			Limit:         limit,
			Offset:        offset,
		}

		entries, err := cat.List(c.UserContext(), q)
		if err != nil {
			return writeServiceError(c, err)
		}

		total, err := cat.Count(c.UserContext(), q)
		if err != nil {
			return writeServiceError(c, err)
		}

		return c.JSON(fiber.Map{"items": entries, "total": total, "limit": limit, "offset": offset})
	}
}

type catalogClip struct {
	*catalog.Entry
	MediaURL string `json:"media_url,omitempty"`
}

// GetCatalogClip returns one catalog entry. Archived clips carry a
// presigned media_url when object storage is available.
func GetCatalogClip(cat Catalog, media MediaLinker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entry, err := cat.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}

		resp := catalogClip{Entry: entry}
		if media != nil && entry.ObjectKey != "" {
			resp.MediaURL, err = media.PresignGet(c.UserContext(), entry.ObjectKey, mediaURLExpiry)
			if err != nil {
				slog.WarnContext(c.UserContext(), "Presign failed",
					slog.String("key", entry.ObjectKey),
					slog.Any("error", err),
				)
			}
		}

		return c.JSON(resp)
	}
}
