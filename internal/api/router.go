// Package api serves the school attendance REST interface over gin.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/classroom"
	"schoolattend/internal/cloudinary"
	"schoolattend/internal/httpmiddleware"
	"schoolattend/internal/logger"
	"schoolattend/internal/metrics"
	"schoolattend/internal/school"
	"schoolattend/internal/student"
	"schoolattend/internal/subject"
	"schoolattend/internal/teacher"
)

// Uploader stores an image and returns where it is served from.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (*cloudinary.UploadResult, error)
}

// HealthCheck reports whether one dependency answers.
type HealthCheck func(ctx context.Context) bool

// Deps is everything the router wires together. Optional fields may be nil.
type Deps struct {
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Tokens  *auth.Tokens
	Authn   *auth.Authenticator

	Schools    *school.Service
	Teachers   *teacher.Service
	Students   *student.Service
	Classes    *classroom.Service
	Subjects   *subject.Service
	Attendance *attendance.Service

	Uploader Uploader
	Health   map[string]HealthCheck

	GlobalLimit    gin.HandlerFunc
	LoginLimit     gin.HandlerFunc
	RequestTimeout time.Duration
	CORSOrigins    []string
}

type handler struct {
	Deps
}

// NewRouter builds the gin engine with the ambient middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	registerTranslations()
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	h := &handler{Deps: d}
	quiet := []string{"/healthz", "/metrics"}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(d.Log, quiet...))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logger.RequestIDHeader},
			ExposeHeaders:    []string{"Authorization", logger.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(httpmiddleware.SecureHeaders())
	if d.GlobalLimit != nil {
		r.Use(d.GlobalLimit)
	}
	r.Use(httpmiddleware.Deadline(d.RequestTimeout))

	r.GET("/healthz", h.health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	loginLimit := d.LoginLimit
	if loginLimit == nil {
		loginLimit = func(c *gin.Context) { c.Next() }
	}
	schoolOnly := auth.Authorize(d.Tokens, auth.RoleSchool)
	schoolOrTeacher := auth.Authorize(d.Tokens, auth.RoleSchool, auth.RoleTeacher)
	schoolOrStudent := auth.Authorize(d.Tokens, auth.RoleSchool, auth.RoleStudent)

	api := r.Group("/api")

	sc := api.Group("/school")
	sc.POST("/register", h.registerSchool)
	sc.POST("/login", loginLimit, h.login(auth.RoleSchool))
	sc.GET("/get-all", h.listSchools)
	sc.GET("/get-single", schoolOnly, h.getOwnSchool)
	sc.PATCH("/update", schoolOnly, h.updateOwnSchool)

	tc := api.Group("/teacher")
	tc.POST("/register", schoolOnly, h.registerTeacher)
	tc.POST("/login", loginLimit, h.login(auth.RoleTeacher))
	tc.GET("/all", schoolOnly, h.listTeachers)
	tc.GET("/fetch-single", auth.Authorize(d.Tokens, auth.RoleTeacher), h.getSelfTeacher)
	tc.GET("/fetch/:id", schoolOrTeacher, h.getTeacher)
	tc.PATCH("/update", auth.Authorize(d.Tokens, auth.RoleTeacher), h.updateSelfTeacher)
	tc.PATCH("/update/:id", schoolOrTeacher, h.updateTeacher)
	tc.DELETE("/delete/:id", schoolOnly, h.deleteTeacher)

	st := api.Group("/student")
	st.POST("/register", schoolOnly, h.registerStudent)
	st.POST("/login", loginLimit, h.login(auth.RoleStudent))
	st.GET("/all", schoolOnly, h.listStudents)
	st.GET("/fetch-single", auth.Authorize(d.Tokens, auth.RoleStudent), h.getSelfStudent)
	st.GET("/fetch/:id", schoolOrStudent, h.getStudent)
	st.PATCH("/update", auth.Authorize(d.Tokens, auth.RoleStudent), h.updateSelfStudent)
	st.PATCH("/update/:id", schoolOrStudent, h.updateStudent)
	st.DELETE("/delete/:id", schoolOnly, h.deleteStudent)

	cl := api.Group("/class", schoolOnly)
	cl.POST("/create", h.createClass)
	cl.GET("/all", h.listClasses)
	cl.PATCH("/update/:id", h.updateClass)
	cl.DELETE("/delete/:id", h.deleteClass)

	sb := api.Group("/subject", schoolOnly)
	sb.POST("/create", h.createSubject)
	sb.GET("/all", h.listSubjects)
	sb.PATCH("/update/:id", h.updateSubject)
	sb.DELETE("/delete/:id", h.deleteSubject)

	at := api.Group("/attendance")
	at.POST("/mark", schoolOnly, h.markAttendance)
	at.GET("/student/:studentId", schoolOrStudent, h.studentAttendance)
	at.GET("/check/:classId", schoolOnly, h.checkAttendance)

	api.POST("/upload", schoolOnly, h.upload)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Success: false, Message: "Route not found."})
	})
	return r
}

// tenant returns the caller's claims; Authorize guarantees they are present.
func tenant(c *gin.Context) auth.Claims {
	claims, _ := auth.ClaimsFrom(c)
	return claims
}

// selfOrSchool admits the school of the tenant or the principal id itself.
func selfOrSchool(c *gin.Context, id string) (auth.Claims, bool) {
	claims := tenant(c)
	if claims.Role == auth.RoleSchool || claims.PrincipalID == id {
		return claims, true
	}
	fail(c, errForbidden)
	return claims, false
}
