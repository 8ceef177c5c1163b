package cloudpath

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/temirov/pskmigrate/internal/credentials"
)

const (
	tokenEndpointPathConstant           = "/admin/publicApi/token"
	credentialPoolEndpointPathConstant  = "/admin/publicApi/dpskPools/{poolId}/dpsks"
	poolIdentifierPathParameterConstant = "poolId"
	contentTypeHeaderConstant           = "Content-Type"
	authorizationHeaderConstant         = "Authorization"
	jsonContentTypeConstant             = "application/json"
	defaultSchemeConstant               = "https://"
	schemeSeparatorConstant             = "://"
	urlPathSeparatorConstant            = "/"
	baseURLFieldNameConstant            = "base_url"
	usernameFieldNameConstant           = "username"
	passwordFieldNameConstant           = "password"
	poolIdentifierFieldNameConstant     = "pool"
	tokenRequestedMessageConstant       = "Requesting session token"
	tokenIssuedMessageConstant          = "Session token issued"
	tokenFailedMessageConstant          = "Session token request failed"
	credentialSubmittedMessageConstant  = "Credential creation submitted"
	credentialFailedMessageConstant     = "Credential creation request failed"
	logFieldBaseURLConstant             = "base_url"
	logFieldStatusCodeConstant          = "status_code"
	logFieldPoolConstant                = "pool"
	logFieldCredentialNameConstant      = "name"
)

// ClientConfiguration describes how to reach the target system.
// A BaseURL without a scheme is treated as an HTTPS host name.
// A zero RequestTimeout leaves requests unbounded.
type ClientConfiguration struct {
	BaseURL            string
	Username           string
	Password           string
	PoolIdentifier     string
	RequestTimeout     time.Duration
	InsecureSkipVerify bool
}

// CreateCredentialRequest is the body of a credential creation call.
type CreateCredentialRequest struct {
	Name                 string `json:"name"`
	Passphrase           string `json:"passphrase"`
	VLANIdentifier       string `json:"vlanid"`
	ThirdPartyIdentifier string `json:"thirdPartyId"`
}

// NewCreateCredentialRequest maps a loaded record onto the creation payload.
func NewCreateCredentialRequest(record credentials.Record) CreateCredentialRequest {
	return CreateCredentialRequest{
		Name:                 record.MigrationIdentifier,
		Passphrase:           record.Secret,
		VLANIdentifier:       record.VLANIdentifier,
		ThirdPartyIdentifier: record.UserName,
	}
}

// SubmissionResponse is the unparsed answer to a credential creation call.
type SubmissionResponse struct {
	StatusCode int
	Status     string
	Body       string
}

type tokenRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Client issues token and credential creation calls against the target API.
type Client struct {
	logger        *zap.Logger
	httpClient    *resty.Client
	configuration ClientConfiguration
}

// NewClient validates configuration and constructs a Client.
func NewClient(logger *zap.Logger, configuration ClientConfiguration) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	normalized, validationError := normalizeConfiguration(configuration)
	if validationError != nil {
		return nil, validationError
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(normalized.BaseURL)
	httpClient.SetLogger(logger.Sugar())
	if normalized.RequestTimeout > 0 {
		httpClient.SetTimeout(normalized.RequestTimeout)
	}
	if normalized.InsecureSkipVerify {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	return &Client{
		logger:        logger,
		httpClient:    httpClient,
		configuration: normalized,
	}, nil
}

// BaseURL returns the normalized address requests are sent to.
func (client *Client) BaseURL() string {
	return client.configuration.BaseURL
}

// Authenticate obtains a fresh session token.
func (client *Client) Authenticate(requestContext context.Context) (string, error) {
	client.logger.Debug(tokenRequestedMessageConstant, zap.String(logFieldBaseURLConstant, client.configuration.BaseURL))

	response, requestError := client.httpClient.R().
		SetContext(requestContext).
		SetHeader(contentTypeHeaderConstant, jsonContentTypeConstant).
		SetBody(tokenRequest{UserName: client.configuration.Username, Password: client.configuration.Password}).
		Post(tokenEndpointPathConstant)
	if requestError != nil {
		authError := AuthError{Cause: requestError}
		client.logger.Warn(tokenFailedMessageConstant, zap.Error(authError))
		return "", authError
	}

	if !response.IsSuccess() {
		authError := AuthError{StatusCode: response.StatusCode(), Cause: unexpectedStatusError(response.StatusCode())}
		client.logger.Warn(tokenFailedMessageConstant, zap.Int(logFieldStatusCodeConstant, response.StatusCode()), zap.Error(authError))
		return "", authError
	}

	var decoded tokenResponse
	if decodeError := json.Unmarshal(response.Body(), &decoded); decodeError != nil {
		return "", AuthError{StatusCode: response.StatusCode(), Cause: decodeError}
	}

	if len(strings.TrimSpace(decoded.Token)) == 0 {
		return "", AuthError{StatusCode: response.StatusCode(), Cause: ErrEmptyToken}
	}

	client.logger.Debug(tokenIssuedMessageConstant, zap.Int(logFieldStatusCodeConstant, response.StatusCode()))
	return decoded.Token, nil
}

// Submit creates record inside the configured pool using token.
// A response is returned whenever the target answered, including alongside a SubmitError for non-success statuses.
func (client *Client) Submit(requestContext context.Context, token string, record credentials.Record) (SubmissionResponse, error) {
	payload := NewCreateCredentialRequest(record)

	response, requestError := client.httpClient.R().
		SetContext(requestContext).
		SetHeader(contentTypeHeaderConstant, jsonContentTypeConstant).
		SetHeader(authorizationHeaderConstant, token).
		SetPathParam(poolIdentifierPathParameterConstant, client.configuration.PoolIdentifier).
		SetBody(payload).
		Post(credentialPoolEndpointPathConstant)
	if requestError != nil {
		submitError := SubmitError{Cause: requestError}
		client.logger.Warn(
			credentialFailedMessageConstant,
			zap.String(logFieldCredentialNameConstant, payload.Name),
			zap.Error(submitError),
		)
		return SubmissionResponse{}, submitError
	}

	submissionResponse := SubmissionResponse{
		StatusCode: response.StatusCode(),
		Status:     response.Status(),
		Body:       string(response.Body()),
	}

	client.logger.Debug(
		credentialSubmittedMessageConstant,
		zap.String(logFieldPoolConstant, client.configuration.PoolIdentifier),
		zap.String(logFieldCredentialNameConstant, payload.Name),
		zap.Int(logFieldStatusCodeConstant, submissionResponse.StatusCode),
	)

	if !response.IsSuccess() {
		return submissionResponse, SubmitError{
			StatusCode: submissionResponse.StatusCode,
			Body:       submissionResponse.Body,
			Cause:      unexpectedStatusError(submissionResponse.StatusCode),
		}
	}

	return submissionResponse, nil
}

func normalizeConfiguration(configuration ClientConfiguration) (ClientConfiguration, error) {
	normalized := configuration
	normalized.BaseURL = strings.TrimSpace(configuration.BaseURL)
	normalized.Username = strings.TrimSpace(configuration.Username)
	normalized.PoolIdentifier = strings.TrimSpace(configuration.PoolIdentifier)

	requiredValues := []struct {
		fieldName string
		value     string
	}{
		{fieldName: baseURLFieldNameConstant, value: normalized.BaseURL},
		{fieldName: usernameFieldNameConstant, value: normalized.Username},
		{fieldName: passwordFieldNameConstant, value: normalized.Password},
		{fieldName: poolIdentifierFieldNameConstant, value: normalized.PoolIdentifier},
	}
	for _, requiredValue := range requiredValues {
		if len(requiredValue.value) == 0 {
			return ClientConfiguration{}, ConfigurationError{Field: requiredValue.fieldName}
		}
	}

	if !strings.Contains(normalized.BaseURL, schemeSeparatorConstant) {
		normalized.BaseURL = defaultSchemeConstant + normalized.BaseURL
	}
	normalized.BaseURL = strings.TrimRight(normalized.BaseURL, urlPathSeparatorConstant)

	return normalized, nil
}
