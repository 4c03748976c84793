package main

import (
	"log"
	"net/http"

	"homestay/src/db"
	"homestay/src/models"
	"homestay/src/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func transactionHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings/:id/transactions", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			actor := requestActor(ctx)
			db := db.GetDb()
			var booking models.Booking
			if err := db.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: params.ID}).
				First(&booking).
				Error; err != nil {
				log.Printf("Error retrieving booking: %s\n", err.Error())
				ctx.Status(http.StatusNotFound)
				return
			}
			if actor.Role != types.ROLE_ADMIN && booking.GuestID != actor.ID && booking.HostID != actor.ID {
				ctx.Status(http.StatusForbidden)
				return
			}
			var transactions []models.Transaction
			if err := db.
				Where(&models.Transaction{BookingID: params.ID}).
				Order("created_at asc").
				Find(&transactions).Error; err != nil {
				log.Printf("Error retrieving transactions: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": transactions})
		}).
		GET("/transactions/:id", func(ctx *gin.Context) {
			var params struct {
				ID string `uri:"id" binding:"required,uuid"`
			}
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := uuid.Parse(params.ID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			actor := requestActor(ctx)
			db := db.GetDb()
			var txn models.Transaction
			if err := db.
				Model(&models.Transaction{}).
				Preload("Booking").
				Where(&models.Transaction{ID: id}).
				First(&txn).
				Error; err != nil {
				log.Printf("Error retrieving transaction: %s\n", err.Error())
				ctx.Status(http.StatusNotFound)
				return
			}
			if actor.Role != types.ROLE_ADMIN && txn.UserID != actor.ID && txn.Booking.HostID != actor.ID {
				ctx.Status(http.StatusForbidden)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": txn})
		})
	return g
}
