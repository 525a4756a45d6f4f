package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"marketpay-backend/internal/domain"
	"marketpay-backend/internal/usecase"
)

const maxWebhookBody = 64 << 10

// bindJSON decodes the body rejecting unknown fields, then runs the binding
// validator over obj.
func bindJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		return err
	}
	return binding.Validator.ValidateStruct(obj)
}

type orderItemReq struct {
	ProductID   string `json:"productId" binding:"required,uuid"`
	ProductName string `json:"productName" binding:"required"`
	ProductSku  string `json:"productSku"`
	Quantity    int    `json:"quantity" binding:"required,gt=0,lte=100000"`
	UnitPrice   int64  `json:"unitPrice" binding:"required,gt=0,lte=99999999"`
}

type createOrderReq struct {
	SellerEmail    string         `json:"sellerEmail" binding:"required,email"`
	BuyerEmail     string         `json:"buyerEmail" binding:"required,email"`
	BuyerName      string         `json:"buyerName"`
	BuyerPhone     string         `json:"buyerPhone"`
	Items          []orderItemReq `json:"items" binding:"required,min=1,dive"`
	ShippingAmount int64          `json:"shippingAmount" binding:"gte=0,lte=99999999"`
	TaxAmount      int64          `json:"taxAmount" binding:"gte=0,lte=99999999"`
	Notes          string         `json:"notes"`
}

func (s *Server) handleCreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := bindJSON(c, &req); err != nil {
		s.bindFailed(c, err)
		return
	}
	in := usecase.CreateOrderInput{
		SellerEmail:    req.SellerEmail,
		BuyerEmail:     req.BuyerEmail,
		BuyerName:      req.BuyerName,
		BuyerPhone:     req.BuyerPhone,
		ShippingAmount: req.ShippingAmount,
		TaxAmount:      req.TaxAmount,
		Notes:          req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, domain.LineItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSku:  it.ProductSku,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	o, err := s.svc.Orders.Create(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order": gin.H{
			"id":          o.ID,
			"totalAmount": o.TotalAmount,
			"status":      o.Status,
		},
	})
}

type orderURI struct {
	OrderID string `uri:"orderId" binding:"required,uuid"`
}

func (s *Server) handleGetOrder(c *gin.Context) {
	var uri orderURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.bindFailed(c, err)
		return
	}
	o, err := s.svc.Orders.Get(c.Request.Context(), uri.OrderID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

func (s *Server) handleCheckout(c *gin.Context) {
	o, err := s.svc.Orders.GetByLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

type onboardReq struct {
	SellerID   string `json:"sellerId" binding:"required,uuid"`
	RefreshURL string `json:"refreshUrl" binding:"required,url"`
	ReturnURL  string `json:"returnUrl" binding:"required,url"`
}

func (s *Server) handleOnboard(c *gin.Context) {
	var req onboardReq
	if err := bindJSON(c, &req); err != nil {
		s.bindFailed(c, err)
		return
	}
	res, err := s.svc.Payments.Onboard(c.Request.Context(), req.SellerID, req.RefreshURL, req.ReturnURL)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": res.URL, "accountId": res.AccountID})
}

func (s *Server) handleOnboardCallback(c *gin.Context) {
	sellerID := c.Query("sellerId")
	if sellerID == "" {
		s.err(c, http.StatusBadRequest, "BadRequest", "sellerId is required")
		return
	}
	acct, err := s.svc.Payments.SyncAccountStatus(c.Request.Context(), sellerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": acct})
}

type createIntentReq struct {
	OrderID string `json:"orderId" binding:"required,uuid"`
}

func (s *Server) handleCreateIntent(c *gin.Context) {
	var req createIntentReq
	if err := bindJSON(c, &req); err != nil {
		s.bindFailed(c, err)
		return
	}
	res, err := s.svc.Payments.CreateIntent(c.Request.Context(), req.OrderID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"clientSecret":    res.ClientSecret,
		"paymentIntentId": res.PaymentIntentID,
	})
}

type portalReq struct {
	SellerID string `json:"sellerId" binding:"required,uuid"`
}

func (s *Server) handlePortal(c *gin.Context) {
	var req portalReq
	if err := bindJSON(c, &req); err != nil {
		s.bindFailed(c, err)
		return
	}
	url, err := s.svc.Payments.LoginLink(c.Request.Context(), req.SellerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

func (s *Server) handleStripeWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		s.err(c, http.StatusBadRequest, "InvalidSignature", "missing Stripe-Signature header")
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.err(c, http.StatusRequestEntityTooLarge, "BadRequest", "payload too large")
			return
		}
		s.err(c, http.StatusBadRequest, "BadRequest", "cannot read body")
		return
	}
	if _, err := s.svc.Webhooks.Handle(c.Request.Context(), payload, signature); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) handleGetSeller(c *gin.Context) {
	seller, err := s.svc.Sellers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (s *Server) handleGetSellerByEmail(c *gin.Context) {
	seller, err := s.svc.Sellers.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

type createSellerReq struct {
	Email        string `json:"email" binding:"required,email"`
	BusinessName string `json:"businessName"`
}

func (s *Server) handleCreateSeller(c *gin.Context) {
	var req createSellerReq
	if err := bindJSON(c, &req); err != nil {
		s.bindFailed(c, err)
		return
	}
	seller, err := s.svc.Sellers.Create(c.Request.Context(), req.Email, req.BusinessName)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, seller)
}
