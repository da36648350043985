// Package rest layers typed JSON calls on top of httpclient.
//
//	client, _ := rest.New(httpclient.Config{BaseURL: baseURL})
//	resp, err := rest.Post[jobResponse](ctx, client, "/v2/transcript", body)
package rest
