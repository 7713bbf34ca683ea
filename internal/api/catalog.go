package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schoolattend/internal/attendance"
	"schoolattend/internal/classroom"
	"schoolattend/internal/subject"
)

func (h *handler) createClass(c *gin.Context) {
	var in classroom.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	cl, err := h.Classes.Create(c.Request.Context(), tenant(c).TenantID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Class created successfully.", cl)
}

func (h *handler) listClasses(c *gin.Context) {
	classes, err := h.Classes.List(c.Request.Context(), tenant(c).TenantID())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", classes)
}

func (h *handler) updateClass(c *gin.Context) {
	var in classroom.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	cl, err := h.Classes.Update(c.Request.Context(), tenant(c).TenantID(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class updated successfully.", cl)
}

func (h *handler) deleteClass(c *gin.Context) {
	if err := h.Classes.Delete(c.Request.Context(), tenant(c).TenantID(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Class deleted successfully.", nil)
}

func (h *handler) createSubject(c *gin.Context) {
	var in subject.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	sb, err := h.Subjects.Create(c.Request.Context(), tenant(c).TenantID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Subject created successfully.", sb)
}

func (h *handler) listSubjects(c *gin.Context) {
	subjects, err := h.Subjects.List(c.Request.Context(), tenant(c).TenantID())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", subjects)
}

func (h *handler) updateSubject(c *gin.Context) {
	var in subject.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	sb, err := h.Subjects.Update(c.Request.Context(), tenant(c).TenantID(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Subject updated successfully.", sb)
}

func (h *handler) deleteSubject(c *gin.Context) {
	if err := h.Subjects.Delete(c.Request.Context(), tenant(c).TenantID(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Subject deleted successfully.", nil)
}

// attendance

func (h *handler) markAttendance(c *gin.Context) {
	var in attendance.MarkInput
	if !bindJSON(c, &in) {
		return
	}
	a, err := h.Attendance.Mark(c.Request.Context(), tenant(c).TenantID(), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Attendance marked successfully.", a)
}

func (h *handler) studentAttendance(c *gin.Context) {
	claims, allowed := selfOrSchool(c, c.Param("studentId"))
	if !allowed {
		return
	}
	var page attendance.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		fail(c, validationFrom(err))
		return
	}
	records, err := h.Attendance.ListForStudent(c.Request.Context(), claims.TenantID(), c.Param("studentId"), page)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", records)
}

func (h *handler) checkAttendance(c *gin.Context) {
	taken, err := h.Attendance.CheckToday(c.Request.Context(), tenant(c).TenantID(), c.Param("classId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"attendanceTaken": taken})
}
