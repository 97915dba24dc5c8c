// Command quota-cli is the client for quota-server.
//
// Usage:
//
//	quota-cli keygen --out ~/.quota/wallet.json
//	quota-cli --server http://127.0.0.1:5080 quota issue --wallet ~/.quota/wallet.json 100x3
//	quota-cli --admin-token $TOKEN identity show
//	quota-cli -o json quota get 4f1c...
package main
