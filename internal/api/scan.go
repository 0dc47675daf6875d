package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danmuck/klarity/internal/catalog"
	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/danmuck/klarity/internal/vision"
	"github.com/gin-gonic/gin"
)

// maxImageBody caps upload bodies; base64 inflates images by a third.
const maxImageBody = 20 << 20

type imageRequest struct {
	Image  string `json:"image"`
	CartID string `json:"cartId,omitempty"`
}

func (s *Server) readImage(c *gin.Context) (imageRequest, vision.Image, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBody)
	var req imageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return req, vision.Image{}, false
	}
	if strings.TrimSpace(req.Image) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Image data is required"})
		return req, vision.Image{}, false
	}
	img, err := vision.DecodeImage(req.Image)
	if err != nil {
		fail(c, err)
		return req, vision.Image{}, false
	}
	return req, img, true
}

func (s *Server) analyze(c *gin.Context, img vision.Image) ([]vision.AnalyzedAct, error) {
	ctx := c.Request.Context()
	if s.deps.VisionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.VisionTimeout)
		defer cancel()
	}
	return s.deps.Analyzer.Analyze(ctx, img)
}

// analyzeQuote forwards an image to the vision model and returns {acts}.
func (s *Server) analyzeQuote(c *gin.Context) {
	_, img, ok := s.readImage(c)
	if !ok {
		return
	}
	acts, err := s.analyze(c, img)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acts": acts})
}

// scan analyzes an image, maps the reading onto the catalog and appends the
// result to a cart, creating one when cartId is empty or unknown.
func (s *Server) scan(c *gin.Context) {
	req, img, ok := s.readImage(c)
	if !ok {
		return
	}
	analyzed, err := s.analyze(c, img)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorMessage(err)})
		return
	}
	mapped := vision.MapToCatalog(analyzed, s.deps.Catalog)

	ctx := c.Request.Context()
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	cart := quote.NewCart(s.deps.NewID())
	if req.CartID != "" {
		existing, err := s.deps.Store.GetCart(ctx, req.CartID)
		switch {
		case err == nil:
			cart = existing
		case errors.Is(err, store.ErrNotFound):
			cart = quote.NewCart(req.CartID)
		default:
			fail(c, err)
			return
		}
	}
	cart.Add(mapped...)
	if err := s.deps.Store.PutCart(ctx, cart); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analyzed":  analyzed,
		"acts":      mapped,
		"unknown":   countUnknown(mapped, s.deps.Catalog),
		"cart":      cart,
		"totalBase": cart.TotalBase(),
	})
}

func countUnknown(acts []catalog.Act, cat *catalog.Catalog) int {
	n := 0
	for _, act := range acts {
		if _, ok := cat.Lookup(act.Code); !ok {
			n++
		}
	}
	return n
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Internal Server Error"
}
