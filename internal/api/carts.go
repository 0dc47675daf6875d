package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/danmuck/klarity/internal/quote"
	"github.com/gin-gonic/gin"
)

type cartView struct {
	quote.Cart
	TotalBase float64 `json:"totalBase"`
}

func viewCart(cart quote.Cart) cartView {
	return cartView{Cart: cart, TotalBase: cart.TotalBase()}
}

func (s *Server) createCart(c *gin.Context) {
	cart := quote.NewCart(s.deps.NewID())
	if err := s.deps.Store.PutCart(c.Request.Context(), cart); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewCart(cart))
}

func (s *Server) getCart(c *gin.Context) {
	cart, err := s.deps.Store.GetCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(cart))
}

type addActRequest struct {
	Code string `json:"code"`
}

func (s *Server) addCartAct(c *gin.Context) {
	var req addActRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		fail(c, fmt.Errorf("%w: code is required", errBadRequest))
		return
	}
	ctx := c.Request.Context()
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	cart, err := s.deps.Store.GetCart(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	act, err := s.deps.Catalog.Get(req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	cart.Add(act)
	if err := s.deps.Store.PutCart(ctx, cart); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(cart))
}

func (s *Server) removeCartAct(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, fmt.Errorf("%w: index must be an integer", errBadRequest))
		return
	}
	ctx := c.Request.Context()
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	cart, err := s.deps.Store.GetCart(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := cart.Remove(index); err != nil {
		fail(c, err)
		return
	}
	if err := s.deps.Store.PutCart(ctx, cart); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewCart(cart))
}
