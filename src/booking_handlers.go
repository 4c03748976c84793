package main

import (
	"log"
	"net/http"

	"homestay/src/common"
	"homestay/src/db"
	"homestay/src/models"
	"homestay/src/types"
	"homestay/src/utils"

	"github.com/gin-gonic/gin"
)

// errStatus maps an operation error kind to the HTTP status the client sees.
func errStatus(err error) int {
	switch common.KindOf(err) {
	case common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindForbidden:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindInvalidDateRange:
		return http.StatusBadRequest
	case common.KindInvalidTransition,
		common.KindAlreadyTerminal,
		common.KindInvalidState,
		common.KindAlreadyStarted,
		common.KindDateConflict,
		common.KindDateBlocked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortOpError(ctx *gin.Context, op string, err error) {
	log.Printf("[%s] error: %s\n", op, err.Error())
	ctx.JSON(errStatus(err), gin.H{
		"error": err.Error(),
		"code":  string(common.KindOf(err)),
	})
}

func requestActor(ctx *gin.Context) types.Actor {
	return types.Actor{
		ID:   ctx.GetUint("id"),
		Role: types.Role(ctx.GetString("role")),
	}
}

func bookingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			actor := requestActor(ctx)
			var bookings []models.Booking
			db := db.GetDb()
			query := db.Model(&models.Booking{}).Order("created_at desc")
			switch actor.Role {
			case types.ROLE_HOST:
				query = query.Where(&models.Booking{HostID: actor.ID})
			case types.ROLE_ADMIN:
			default:
				query = query.Where(&models.Booking{GuestID: actor.ID})
			}
			if status := ctx.Query("status"); status != "" {
				query = query.Where("status = ?", status)
			}
			if err := query.Find(&bookings).Error; err != nil {
				log.Printf("Error retrieving bookings: %s\n", err.Error())
				ctx.Status(http.StatusBadRequest)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": bookings})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			actor := requestActor(ctx)
			var booking models.Booking
			db := db.GetDb()
			if err := db.
				Model(&models.Booking{}).
				Preload("Listing").
				Preload("Transactions").
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
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/status", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.TransitionStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			transition := common.TransitionParams{
				BookingID:    params.ID,
				Target:       types.BookingStatus(body.Status),
				Actor:        requestActor(ctx),
				PaymentNotes: body.PaymentNotes,
			}
			if body.PaymentStatus != nil {
				ps := types.PaymentStatus(*body.PaymentStatus)
				transition.PaymentStatus = &ps
			}
			result, err := common.TransitionBookingStatus(transition)
			if err != nil {
				abortOpError(ctx, "TransitionBookingStatus", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data":         result.Booking,
				"status_label": result.StatusLabel,
			})
		}).
		POST("/bookings/:id/reschedule", func(ctx *gin.Context) {
			params, err := bindReschedule(ctx)
			if err != nil {
				return
			}
			result, err := common.RescheduleBooking(*params)
			if err != nil {
				abortOpError(ctx, "RescheduleBooking", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		POST("/bookings/:id/reschedule/preview", func(ctx *gin.Context) {
			params, err := bindReschedule(ctx)
			if err != nil {
				return
			}
			result, err := common.PreviewReschedule(*params)
			if err != nil {
				abortOpError(ctx, "PreviewReschedule", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			result, err := common.CancelBooking(common.CancelParams{
				BookingID: params.ID,
				GuestID:   ctx.GetUint("id"),
				Reason:    body.Reason,
			})
			if err != nil {
				abortOpError(ctx, "CancelBooking", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		GET("/bookings/:id/refund-preview", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			result, err := common.PreviewRefund(params.ID, ctx.GetUint("id"))
			if err != nil {
				abortOpError(ctx, "PreviewRefund", err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		})
	return g
}

// bindReschedule parses the uri id and reschedule body; it writes the error
// response itself so the route closures stay flat.
func bindReschedule(ctx *gin.Context) (*common.RescheduleParams, error) {
	var params types.SimpleRequestParams
	if err := ctx.ShouldBindUri(&params); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, err
	}
	var body types.RescheduleRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, err
	}
	checkIn, err := utils.ParseStayDate(body.CheckIn)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, err
	}
	checkOut, err := utils.ParseStayDate(body.CheckOut)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, err
	}
	return &common.RescheduleParams{
		BookingID:   params.ID,
		GuestID:     ctx.GetUint("id"),
		NewCheckIn:  checkIn,
		NewCheckOut: checkOut,
		Reason:      body.Reason,
	}, nil
}
