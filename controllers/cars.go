package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/middleware"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/services"
)

// carForm reads the car attributes and uploaded files from a multipart
// form, or the attributes alone from a JSON body.
func carForm(c *gin.Context) (services.CarFields, []services.Upload, *services.Upload, error) {
	var f services.CarFields
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		raw := map[string]interface{}{}
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&raw); err != nil && err != io.EOF {
				return f, nil, nil, err
			}
		}
		get := func(key string) *string {
			v, ok := raw[key]
			if !ok || v == nil {
				return nil
			}
			s := fmt.Sprint(v)
			return &s
		}
		fillCarFields(&f, get)
		return f, nil, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return f, nil, nil, err
	}
	fillCarFields(&f, func(key string) *string {
		vs, ok := form.Value[key]
		if !ok || len(vs) == 0 {
			return nil
		}
		return &vs[0]
	})

	var photos []services.Upload
	for _, fh := range form.File["photos"] {
		photos = append(photos, toUpload(fh))
	}
	var video *services.Upload
	switch files := form.File["video"]; len(files) {
	case 0:
	case 1:
		v := toUpload(files[0])
		video = &v
	default:
		return f, nil, nil, fmt.Errorf("only one video is allowed")
	}
	return f, photos, video, nil
}

func fillCarFields(f *services.CarFields, get func(string) *string) {
	f.InOutStatus = get("inOutStatus")
	f.InOutDateTime = get("inOutDateTime")
	f.RegNo = get("regNo")
	f.Make = get("make")
	f.Model = get("model")
	f.Variant = get("variant")
	f.Year = get("year")
	f.Colour = get("colour")
	f.Kmp = get("kmp")
	f.PersonName = get("personName")
	f.CellNo = get("cellNo")
	f.Price = get("price")
	f.ReferralID = get("referralId")
}

func toUpload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// CreateCar stores a car entry with its photos and optional video.
func (h *Handler) CreateCar(c *gin.Context) {
	fields, photos, video, err := carForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form data"})
		return
	}
	car, err := h.Cars.Create(c.Request.Context(), middleware.CurrentUser(c), fields, photos, video)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, car)
}

// ListCars returns one page of the cars visible to the caller.
func (h *Handler) ListCars(c *gin.Context) {
	var params services.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid query"})
		return
	}
	page, err := h.Cars.List(c.Request.Context(), middleware.CurrentUser(c), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetCar(c *gin.Context) {
	car, err := h.Cars.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *Handler) UpdateCar(c *gin.Context) {
	fields, photos, video, err := carForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form data"})
		return
	}
	car, err := h.Cars.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), fields, photos, video)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func (h *Handler) DeleteCar(c *gin.Context) {
	if err := h.Cars.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted"})
}

func (h *Handler) DeletePhoto(c *gin.Context) {
	if err := h.Cars.DeletePhoto(c.Request.Context(), c.Param("id"), c.Param("index")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted"})
}

func (h *Handler) DeleteVideo(c *gin.Context) {
	if err := h.Cars.DeleteVideo(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Video deleted"})
}

// DashboardStats returns the caller's dashboard figures.
func (h *Handler) DashboardStats(c *gin.Context) {
	var params services.DashboardParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid query"})
		return
	}
	stats, err := h.Dashboard.Stats(c.Request.Context(), middleware.CurrentUser(c), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportCars streams every car as an Excel workbook.
func (h *Handler) ExportCars(c *gin.Context) {
	export, err := h.Export.Cars(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+export.Filename)
	c.Data(http.StatusOK, services.XLSXContentType, export.Data.Bytes())
}
