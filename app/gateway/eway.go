package gateway

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	actionCreateCustomer = "CreateCustomer"
	actionProcessPayment = "ProcessPayment"
	actionQueryCustomer  = "QueryCustomer"

	// The gateway truncates anything longer.
	maxInvoiceRefLen = 16

	defaultGatewayTimeout = 10 * time.Minute
)

type EwayConfig struct {
	ProcessorID int32
	Endpoint    string
	CustomerID  string
	Username    string
	Password    string
	Timeout     time.Duration
}

// EwayClient talks to an eWAY-style managed payment endpoint. Requests
// are XML envelopes with the processor credentials in the header.
type EwayClient struct {
	cfg    EwayConfig
	client *http.Client
}

func NewEwayClient(cfg EwayConfig) *EwayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &EwayClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *EwayClient) ProcessorID() int32 {
	return c.cfg.ProcessorID
}

type createCustomerRequest struct {
	XMLName   xml.Name `xml:"CreateCustomer"`
	Title     string   `xml:"Title"`
	FirstName string   `xml:"FirstName"`
	LastName  string   `xml:"LastName"`
	Address   string   `xml:"Address"`
	Suburb    string   `xml:"Suburb"`
	State     string   `xml:"State"`
	PostCode  string   `xml:"PostCode"`
	Country   string   `xml:"Country"`
	Email     string   `xml:"Email"`
}

type createCustomerResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Result  string   `xml:"Body>CreateCustomerResponse>CreateCustomerResult"`
}

func (c *EwayClient) CreateToken(ctx context.Context, profile *CustomerProfile) (string, error) {
	title := profile.Title
	if title == "" {
		// Mandatory fixed-value field on the gateway side.
		title = "Mr."
	}

	var resp createCustomerResponse
	err := c.call(ctx, actionCreateCustomer, &createCustomerRequest{
		Title:     title,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Address:   profile.Address,
		Suburb:    profile.City,
		State:     profile.State,
		PostCode:  profile.PostCode,
		Country:   profile.Country,
		Email:     profile.Email,
	}, &resp)
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(resp.Result)
	if token == "" {
		return "", fmt.Errorf("%w: missing customer token", ErrInvalidResponse)
	}
	if _, err := strconv.ParseUint(token, 10, 64); err != nil {
		return "", fmt.Errorf("%w: customer token %q is not numeric", ErrInvalidResponse, token)
	}
	return token, nil
}

type processPaymentRequest struct {
	XMLName            xml.Name `xml:"ProcessPayment"`
	ManagedCustomerID  string   `xml:"managedCustomerID"`
	Amount             int64    `xml:"amount"`
	InvoiceReference   string   `xml:"invoiceReference"`
	InvoiceDescription string   `xml:"invoiceDescription"`
}

type processPaymentResponse struct {
	XMLName    xml.Name `xml:"Envelope"`
	TrxnStatus string   `xml:"Body>ProcessPaymentResponse>ewayResponse>ewayTrxnStatus"`
	TrxnNumber string   `xml:"Body>ProcessPaymentResponse>ewayResponse>ewayTrxnNumber"`
	TrxnError  string   `xml:"Body>ProcessPaymentResponse>ewayResponse>ewayTrxnError"`
}

func (c *EwayClient) Charge(ctx context.Context, tokenID string, amountCents int64, invoiceRef, description string) (*ChargeResult, error) {
	if len(invoiceRef) > maxInvoiceRefLen {
		invoiceRef = invoiceRef[:maxInvoiceRefLen]
	}

	var resp processPaymentResponse
	err := c.call(ctx, actionProcessPayment, &processPaymentRequest{
		ManagedCustomerID:  tokenID,
		Amount:             amountCents,
		InvoiceReference:   invoiceRef,
		InvoiceDescription: description,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(strings.TrimSpace(resp.TrxnStatus), "true") {
		msg := strings.TrimSpace(resp.TrxnError)
		if msg == "" {
			msg = "unknown gateway processing error"
		}
		return nil, fmt.Errorf("%w: %s", ErrGatewayFault, msg)
	}
	if strings.TrimSpace(resp.TrxnNumber) == "" {
		return nil, fmt.Errorf("%w: missing transaction number", ErrInvalidResponse)
	}

	return &ChargeResult{TrxnID: strings.TrimSpace(resp.TrxnNumber)}, nil
}

type queryCustomerRequest struct {
	XMLName           xml.Name `xml:"QueryCustomer"`
	ManagedCustomerID string   `xml:"managedCustomerID"`
}

type queryCustomerResponse struct {
	XMLName       xml.Name `xml:"Envelope"`
	CCNumber      string   `xml:"Body>QueryCustomerResponse>QueryCustomerResult>CCNumber"`
	CustomerEmail string   `xml:"Body>QueryCustomerResponse>QueryCustomerResult>CustomerEmail"`
	CCExpiryMonth string   `xml:"Body>QueryCustomerResponse>QueryCustomerResult>CCExpiryMonth"`
	CCExpiryYear  string   `xml:"Body>QueryCustomerResponse>QueryCustomerResult>CCExpiryYear"`
}

func (c *EwayClient) QueryToken(ctx context.Context, tokenID string) (*TokenInfo, error) {
	var resp queryCustomerResponse
	err := c.call(ctx, actionQueryCustomer, &queryCustomerRequest{ManagedCustomerID: tokenID}, &resp)
	if err != nil {
		return nil, err
	}

	month, err := strconv.Atoi(strings.TrimSpace(resp.CCExpiryMonth))
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: bad expiry month %q", ErrInvalidResponse, resp.CCExpiryMonth)
	}
	year, err := strconv.Atoi(strings.TrimSpace(resp.CCExpiryYear))
	if err != nil || year < 0 {
		return nil, fmt.Errorf("%w: bad expiry year %q", ErrInvalidResponse, resp.CCExpiryYear)
	}
	// The gateway reports two-digit card expiry years.
	if year < 100 {
		year += 2000
	}

	return &TokenInfo{
		TokenID:     tokenID,
		CardNumber:  strings.TrimSpace(resp.CCNumber),
		Email:       strings.TrimSpace(resp.CustomerEmail),
		ExpiryMonth: month,
		ExpiryYear:  year,
	}, nil
}

type requestEnvelope struct {
	XMLName xml.Name       `xml:"Envelope"`
	Header  requestHeader  `xml:"Header"`
	Body    requestBodyRaw `xml:"Body"`
}

type requestHeader struct {
	CustomerID string `xml:"eWAYHeader>eWAYCustomerID"`
	Username   string `xml:"eWAYHeader>Username"`
	Password   string `xml:"eWAYHeader>Password"`
}

type requestBodyRaw struct {
	Inner []byte `xml:",innerxml"`
}

type faultEnvelope struct {
	XMLName xml.Name   `xml:"Envelope"`
	Fault   *soapFault `xml:"Body>Fault"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (c *EwayClient) call(ctx context.Context, action string, request, response interface{}) error {
	inner, err := xml.Marshal(request)
	if err != nil {
		return err
	}

	payload, err := xml.Marshal(&requestEnvelope{
		Header: requestHeader{
			CustomerID: c.cfg.CustomerID,
			Username:   c.cfg.Username,
			Password:   c.cfg.Password,
		},
		Body: requestBodyRaw{Inner: inner},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body for %s", ErrNoResponse, action)
	}

	var fault faultEnvelope
	if xml.Unmarshal(body, &fault) == nil && fault.Fault != nil {
		return fmt.Errorf("%w: %s %s", ErrGatewayFault, fault.Fault.Code, fault.Fault.String)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned status %d", ErrGatewayFault, action, resp.StatusCode)
	}

	if err := xml.Unmarshal(body, response); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
