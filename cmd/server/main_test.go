package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwaggerURL(t *testing.T) {
	tests := []struct {
		name string
		host string
		port string
		want string
	}{
		{
			name: "defaults to localhost with server port",
			port: "8080",
			want: "http://localhost:8080/swagger/index.html",
		},
		{
			name: "bare host gets http scheme",
			host: "capsules.example.com",
			port: "8080",
			want: "http://capsules.example.com/swagger/index.html",
		},
		{
			name: "host with scheme kept as-is",
			host: "https://capsules.example.com",
			port: "8080",
			want: "https://capsules.example.com/swagger/index.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, swaggerURL(tt.host, tt.port))
		})
	}
}
