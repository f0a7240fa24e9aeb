package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"loginsight-backend/internal/metadata"
	"loginsight-backend/internal/model"
)

// CatalogController administers the index catalog and connection profiles the
// pipeline selects from. Writes go through the cached gateway so a change is
// visible to the next turn immediately.
type CatalogController struct {
	catalog *metadata.CachedGateway
}

func NewCatalogController(catalog *metadata.CachedGateway) *CatalogController {
	return &CatalogController{catalog: catalog}
}

func RegisterCatalogRoutes(router *gin.Engine, controller *CatalogController) {
	v1 := router.Group("/api/v1/catalog")
	{
		v1.GET("/indices", controller.ListIndices)
		v1.GET("/indices/:name", controller.GetIndex)
		v1.PUT("/indices/:name", controller.UpsertIndex)
		v1.DELETE("/indices/:name", controller.DeleteIndex)
		v1.GET("/profiles", controller.ListProfiles)
		v1.PUT("/profiles/:name", controller.UpsertProfile)
		v1.DELETE("/profiles/:name", controller.DeleteProfile)
		v1.POST("/refresh", controller.Refresh)
	}
}

// ListIndices godoc
// @Summary      List catalog indices
// @Tags         catalog
// @Produce      json
// @Success      200 {array} string "Index names"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/catalog/indices [get]
func (c *CatalogController) ListIndices(ctx *gin.Context) {
	names, err := c.catalog.ListIndices(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list catalog indices")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to list indices", nil))
		return
	}
	ctx.JSON(http.StatusOK, names)
}

// GetIndex godoc
// @Summary      Get one catalog index
// @Tags         catalog
// @Produce      json
// @Param        name path string true "Index name"
// @Success      200 {object} model.IndexDefinition "Catalog entry"
// @Failure      404 {object} model.Response "Unknown index"
// @Router       /api/v1/catalog/indices/{name} [get]
func (c *CatalogController) GetIndex(ctx *gin.Context) {
	name := ctx.Param("name")
	def, err := c.catalog.GetIndex(ctx.Request.Context(), name)
	if err != nil {
		if errors.Is(err, metadata.ErrIndexNotFound) {
			ctx.JSON(http.StatusNotFound, model.NewResponse("Unknown index: "+name, nil))
			return
		}
		log.Error().Err(err).Str("index", name).Msg("Failed to load catalog index")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to load index", nil))
		return
	}
	ctx.JSON(http.StatusOK, def)
}

// UpsertIndex godoc
// @Summary      Create or replace a catalog index
// @Description  Replaces the full catalog entry for the named index, including its field descriptors and reference examples.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        name    path string                true "Index name"
// @Param        request body model.IndexDefinition true "Catalog entry"
// @Success      200 {object} model.Response "Index stored"
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/catalog/indices/{name} [put]
func (c *CatalogController) UpsertIndex(ctx *gin.Context) {
	var def model.IndexDefinition
	if err := ctx.ShouldBindJSON(&def); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	def.Name = ctx.Param("name")

	if err := c.catalog.UpsertIndex(ctx.Request.Context(), def); err != nil {
		log.Error().Err(err).Str("index", def.Name).Msg("Failed to upsert catalog index")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to store index", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Index stored", nil))
}

// DeleteIndex godoc
// @Summary      Delete a catalog index
// @Tags         catalog
// @Produce      json
// @Param        name path string true "Index name"
// @Success      200 {object} model.Response "Index deleted"
// @Failure      404 {object} model.Response "Unknown index"
// @Router       /api/v1/catalog/indices/{name} [delete]
func (c *CatalogController) DeleteIndex(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.catalog.DeleteIndex(ctx.Request.Context(), name); err != nil {
		if errors.Is(err, metadata.ErrIndexNotFound) {
			ctx.JSON(http.StatusNotFound, model.NewResponse("Unknown index: "+name, nil))
			return
		}
		log.Error().Err(err).Str("index", name).Msg("Failed to delete catalog index")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to delete index", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Index deleted", nil))
}

// ListProfiles godoc
// @Summary      List connection profiles
// @Tags         catalog
// @Produce      json
// @Success      200 {array} model.ConnectionProfile "Connection profiles"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/catalog/profiles [get]
func (c *CatalogController) ListProfiles(ctx *gin.Context) {
	profiles, err := c.catalog.ListConnectionProfiles(ctx.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list connection profiles")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to list profiles", nil))
		return
	}
	ctx.JSON(http.StatusOK, profiles)
}

// UpsertProfile godoc
// @Summary      Create or replace a connection profile
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        name    path string                  true "Profile name"
// @Param        request body model.ConnectionProfile true "Connection profile"
// @Success      200 {object} model.Response "Profile stored"
// @Failure      400 {object} model.Response "Invalid request body"
// @Failure      500 {object} model.Response "Internal server error"
// @Router       /api/v1/catalog/profiles/{name} [put]
func (c *CatalogController) UpsertProfile(ctx *gin.Context) {
	var profile model.ConnectionProfile
	if err := ctx.ShouldBindJSON(&profile); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}
	profile.Name = ctx.Param("name")

	if err := c.catalog.UpsertConnectionProfile(ctx.Request.Context(), profile); err != nil {
		log.Error().Err(err).Str("profile", profile.Name).Msg("Failed to upsert connection profile")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to store profile", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Profile stored", nil))
}

// DeleteProfile godoc
// @Summary      Delete a connection profile
// @Tags         catalog
// @Produce      json
// @Param        name path string true "Profile name"
// @Success      200 {object} model.Response "Profile deleted"
// @Failure      404 {object} model.Response "Unknown profile"
// @Router       /api/v1/catalog/profiles/{name} [delete]
func (c *CatalogController) DeleteProfile(ctx *gin.Context) {
	name := ctx.Param("name")
	if err := c.catalog.DeleteConnectionProfile(ctx.Request.Context(), name); err != nil {
		if errors.Is(err, metadata.ErrProfileNotFound) {
			ctx.JSON(http.StatusNotFound, model.NewResponse("Unknown profile: "+name, nil))
			return
		}
		log.Error().Err(err).Str("profile", name).Msg("Failed to delete connection profile")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to delete profile", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Profile deleted", nil))
}

// Refresh godoc
// @Summary      Reload the catalog snapshot
// @Description  Forces an immediate reload of the in-memory catalog from the metadata database, outside the scheduled refresh.
// @Tags         catalog
// @Produce      json
// @Success      200 {object} model.Response "Catalog reloaded"
// @Failure      500 {object} model.Response "Reload failed"
// @Router       /api/v1/catalog/refresh [post]
func (c *CatalogController) Refresh(ctx *gin.Context) {
	if err := c.catalog.Refresh(ctx.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Catalog refresh failed")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Catalog reload failed", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Catalog reloaded", nil))
}
