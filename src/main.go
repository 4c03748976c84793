package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"strconv"
	"time"

	"homestay/src/boot"
	"homestay/src/common"
	"homestay/src/config"
	"homestay/src/db"
	"homestay/src/middlewares"
	"homestay/src/models"
	"homestay/src/policy"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	apiPrefix string = "/api/v1"
)

// staydate accepts a calendar date that is not in the past.
var stayDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	parsed, err := time.Parse(config.STAY_DATE_FORMAT, date)
	if err != nil {
		return false
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return !parsed.Before(today)
}

// afterdate requires the field to be a later date than the named sibling
// field.
var afterDateValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	date, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	parsed, err := time.Parse(config.STAY_DATE_FORMAT, date)
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.Param())
	fieldValue, ok := field.Interface().(string)
	if !ok {
		return false
	}
	other, err := time.Parse(config.STAY_DATE_FORMAT, fieldValue)
	if err != nil {
		return false
	}
	return parsed.After(other)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm := os.Getenv("MAINTENANCE_MODE")
		atoi, err := strconv.ParseBool(mm)
		if err == nil && atoi {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, err.Error())
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	common.SetPolicyTables(policy.DefaultTables())

	boot.InitDb()
	boot.InitScheduler()
	go boot.InitBroker()

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("staydate", stayDateValidatorFunc)
		v.RegisterValidation("afterdate", afterDateValidatorFunc)
	}

	router = maintenanceModeMiddleware(router)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized.
			GET("/users/me", func(ctx *gin.Context) {
				var user models.User
				userId := ctx.GetUint("id")
				db := db.GetDb()
				if err := db.
					Where(&models.User{ID: userId}).
					First(&user).
					Error; err != nil {
					log.Printf("Error retrieving user: %s\n", err.Error())
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusOK, gin.H{"data": user})
			})

		authorized = bookingHandlers(authorized)
		authorized = transactionHandlers(authorized)
	}

	router.Run(":8080")
}
