package main

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bakery-platform/inventory/internal/application"
	"github.com/bakery-platform/inventory/internal/domain"
	"github.com/bakery-platform/inventory/pkg/errors"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/middleware"
)

func parseItemID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		middleware.AbortWithAppError(c, errors.ErrValidation("invalid item id").WithDetail(param, c.Param(param)))
		return 0, false
	}
	return id, true
}

// Inventory

func listInventoryHandler(service *application.InventoryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := service.ListItems(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func lowStockHandler(service *application.InventoryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := service.ListLowStock(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func getItemHandler(service *application.InventoryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseItemID(c, "id")
		if !ok {
			return
		}

		item, err := service.GetItem(c.Request.Context(), id)
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func createItemHandler(service *application.InventoryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req itemRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		item, err := service.CreateItem(c.Request.Context(), application.CreateItemCommand{
			Name:                     req.Name,
			PrimaryUnit:              req.primaryUnit(),
			CustomPrimaryUnit:        req.CustomPrimaryUnit,
			SecondaryUnit:            req.secondaryUnit(),
			QuantityPerSecondaryUnit: float64(req.QuantityPerSecondaryUnit),
			MinimumQuantity:          float64(req.MinimumQuantity),
			Ledger:                   req.Ledger.toDomain(),
		})
		if err != nil {
			responder.RespondError(err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func updateItemHandler(service *application.InventoryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		id, ok := parseItemID(c, "id")
		if !ok {
			return
		}
		var req itemRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.UpdateItemCommand{
			ID:                       id,
			Name:                     req.Name,
			PrimaryUnit:              req.primaryUnit(),
			CustomPrimaryUnit:        req.CustomPrimaryUnit,
			SecondaryUnit:            req.secondaryUnit(),
			QuantityPerSecondaryUnit: float64(req.QuantityPerSecondaryUnit),
			MinimumQuantity:          float64(req.MinimumQuantity),
		}
		if ledger := req.Ledger.toDomain(); ledger != nil {
			cmd.Ledger = *ledger
		}

		item, err := service.UpdateItem(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondError(err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func deleteItemHandler(service *application.InventoryApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseItemID(c, "id")
		if !ok {
			return
		}
		if err := service.DeleteItem(c.Request.Context(), id); err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Recipes

func listRecipesHandler(service *application.RecipeApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipes, err := service.ListRecipes(c.Request.Context())
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.JSON(http.StatusOK, recipes)
	}
}

func getRecipeHandler(service *application.RecipeApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipe, err := service.GetRecipe(c.Request.Context(), c.Param("id"))
		if err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.JSON(http.StatusOK, recipe)
	}
}

func createRecipeHandler(service *application.RecipeApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var doc map[string]any
		if err := c.ShouldBindJSON(&doc); err != nil {
			responder.RespondBadRequest("invalid request body: " + err.Error())
			return
		}

		recipe, err := service.CreateRecipe(c.Request.Context(), application.CreateRecipeCommand{Document: doc})
		if err != nil {
			responder.RespondError(err)
			return
		}
		c.JSON(http.StatusCreated, recipe)
	}
}

func deleteRecipeHandler(service *application.RecipeApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.DeleteRecipe(c.Request.Context(), c.Param("id")); err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Production orders

func applyOrderHandler(service *application.ConsumptionService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req orderRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd := application.ApplyOrderCommand{
			OrderID:  req.OrderID,
			RecipeID: req.RecipeID,
			OrderQty: float64(req.OrderQty),
		}
		if req.Recipe != nil {
			recipe, err := domain.NormalizeRecipeDocument(req.Recipe)
			if err != nil {
				responder.RespondWithAppError(errors.ErrValidation(err.Error()).Wrap(err))
				return
			}
			cmd.Recipe = &recipe
		}

		result, err := service.ApplyOrder(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondError(err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// Daily records

func saveRecordHandler(service *application.RecordApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var query overwriteQuery
		if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		var req recordRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		record, err := service.SaveRecord(c.Request.Context(), application.SaveRecordCommand{
			Date:      req.Date,
			ItemID:    req.ItemID,
			Ledger:    req.Ledger.toDomain(),
			Overwrite: query.Overwrite,
		})
		if err != nil {
			responder.RespondError(err)
			return
		}
		c.JSON(http.StatusCreated, record)
	}
}

func snapshotHandler(service *application.RecordApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var query overwriteQuery
		if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		var req snapshotRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		result, err := service.Snapshot(c.Request.Context(), application.SnapshotCommand{
			Date:      req.Date,
			Source:    domain.SourceManual,
			Overwrite: req.Overwrite || query.Overwrite,
		})
		if err != nil {
			responder.RespondError(err)
			return
		}

		status := http.StatusCreated
		if len(result.Conflicts) > 0 {
			status = http.StatusConflict
		}
		c.JSON(status, result)
	}
}

func listRecordsHandler(service *application.RecordApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var query recordsQuery
		if appErr := middleware.BindQueryAndValidate(c, &query); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		records, err := service.ListRecords(c.Request.Context(), application.ListRecordsQuery{From: query.From, To: query.To})
		if err != nil {
			responder.RespondError(err)
			return
		}
		c.JSON(http.StatusOK, records)
	}
}

func deleteRecordHandler(service *application.RecordApplicationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := parseItemID(c, "itemId")
		if !ok {
			return
		}
		if err := service.DeleteRecord(c.Request.Context(), c.Param("date"), itemID); err != nil {
			middleware.NewErrorResponder(c, logger.Logger).RespondError(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// Cycle

func cycleStatusHandler(scheduler *application.RolloverScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, scheduler.Status())
	}
}

func rolloverHandler(scheduler *application.RolloverScheduler, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		report, err := scheduler.RunNow(c.Request.Context())
		switch {
		case stderrors.Is(err, domain.ErrRolloverSuppressed), stderrors.Is(err, application.ErrRolloverInProgress):
			responder.RespondConflict(err.Error())
			return
		case err != nil && report == nil:
			responder.RespondError(err)
			return
		case err != nil:
			// some items failed; the report lists them
			logger.WithError(err).Warn("Manual rollover finished with failures")
			c.JSON(http.StatusMultiStatus, report)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
