package graphql_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"github.com/jnxxx/connectedcars-go/internal/metrics"
	"github.com/jnxxx/connectedcars-go/mocks"
	"github.com/jnxxx/connectedcars-go/pkg/connector/inet"
	"github.com/jnxxx/connectedcars-go/pkg/graphql"
)

const graphURL = "https://api.connectedcars.io/graphql"

// staticTokens hands out a fixed token and records invalidations.
type staticTokens struct {
	token       string
	invalidated atomic.Int32
}

func (s *staticTokens) Token(context.Context) (string, error) {
	return s.token, nil
}

func (s *staticTokens) Invalidate() {
	s.invalidated.Add(1)
}

var _ = Describe("Client", func() {
	var (
		transport *httpmock.MockTransport
		conn      *inet.Connection
		tokens    *staticTokens
		client    *graphql.Client
		ctx       context.Context

		lastRequest *http.Request
		lastBody    []byte
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = httpmock.NewMockTransport()
		conn = inet.NewConnection("minvolkswagen", &http.Client{Transport: transport})
		tokens = &staticTokens{token: "bearer-1"}
		client = graphql.NewClient(conn, tokens)
	})

	respond := func(status int, body string) {
		transport.RegisterResponder(http.MethodPost, graphURL, func(req *http.Request) (*http.Response, error) {
			lastRequest = req.Clone(context.Background())
			lastBody, _ = io.ReadAll(req.Body)
			return httpmock.NewStringResponse(status, body), nil
		})
	}

	It("posts the query with a bearer token", func() {
		respond(http.StatusOK, `{"data": {"viewer": {"vehicles": []}}}`)
		response, err := client.Execute(ctx, "query User { viewer { id } }")
		Expect(err).ToNot(HaveOccurred())
		Expect(response).To(HaveKey("data"))

		Expect(lastRequest.Header.Get("Authorization")).To(Equal("Bearer bearer-1"))
		Expect(lastRequest.Header.Get("x-organization-namespace")).To(Equal("semler:minvolkswagen"))
		Expect(lastRequest.Header.Get("Content-Type")).To(Equal("application/json"))
		Expect(lastRequest.Header.Get("User-Agent")).To(Equal("ConnectedCars/360 CFNetwork/978.0.7 Darwin/18.7.0"))
		Expect(lastBody).To(MatchJSON(`{"query": "query User { viewer { id } }"}`))
	})

	It("returns partial data alongside GraphQL errors", func() {
		respond(http.StatusOK, `{"data": {"vehicle": {"id": "7"}}, "errors": [{"message": "boom", "path": ["vehicle", "trip"]}]}`)
		response, err := client.Execute(ctx, "query {}")
		Expect(err).ToNot(HaveOccurred())
		Expect(response["data"]).To(HaveKeyWithValue("vehicle", HaveKeyWithValue("id", "7")))
	})

	It("treats HTTP error statuses as no data", func() {
		respond(http.StatusInternalServerError, `oops`)
		before := testutil.ToFloat64(metrics.GraphqlRequests.WithLabelValues("5xx"))
		response, err := client.Execute(ctx, "query {}")
		Expect(err).ToNot(HaveOccurred())
		Expect(response).To(BeNil())
		Expect(tokens.invalidated.Load()).To(BeZero())
		Expect(testutil.ToFloat64(metrics.GraphqlRequests.WithLabelValues("5xx"))).To(Equal(before + 1))
	})

	It("invalidates the token when the server rejects it", func() {
		respond(http.StatusUnauthorized, `{"error": "unauthorized"}`)
		response, err := client.Execute(ctx, "query {}")
		Expect(err).ToNot(HaveOccurred())
		Expect(response).To(BeNil())
		Expect(tokens.invalidated.Load()).To(BeEquivalentTo(1))
	})

	It("reports connection failures as transport errors", func() {
		transport.RegisterResponder(http.MethodPost, graphURL, httpmock.NewErrorResponder(errors.New("connection reset by peer")))
		response, err := client.Execute(ctx, "query {}")
		Expect(response).To(BeNil())
		Expect(inet.IsTransportError(err)).To(BeTrue())
	})

	It("fails on a body that is not JSON", func() {
		respond(http.StatusOK, `<html>`)
		_, err := client.Execute(ctx, "query {}")
		Expect(err).To(MatchError(ContainSubstring("unable to parse GraphQL response")))
	})

	It("uses a custom endpoint", func() {
		transport.RegisterResponder(http.MethodPost, "https://graph.example.com/graphql",
			httpmock.NewStringResponder(http.StatusOK, `{"data": {}}`))
		client.GraphURL = "https://graph.example.com"
		_, err := client.Execute(ctx, "query {}")
		Expect(err).ToNot(HaveOccurred())
		Expect(transport.GetTotalCallCount()).To(Equal(1))
	})

	Context("with a mocked token source", func() {
		var ctrl *gomock.Controller

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
		})

		It("does not send a request when no token is available", func() {
			source := mocks.NewTokenSource(ctrl)
			source.EXPECT().Token(gomock.Any()).Return("", errors.New("Incorrect password"))
			client = graphql.NewClient(conn, source)

			_, err := client.Execute(ctx, "query {}")
			Expect(err).To(MatchError("Incorrect password"))
			Expect(transport.GetTotalCallCount()).To(BeZero())
		})

		It("does not require the token source to support invalidation", func() {
			source := mocks.NewTokenSource(ctrl)
			source.EXPECT().Token(gomock.Any()).Return("bearer-2", nil)
			client = graphql.NewClient(conn, source)
			respond(http.StatusUnauthorized, `{}`)

			response, err := client.Execute(ctx, "query {}")
			Expect(err).ToNot(HaveOccurred())
			Expect(response).To(BeNil())
			Expect(lastRequest.Header.Get("Authorization")).To(Equal("Bearer bearer-2"))
		})
	})
})
