package participants

//go:generate mockgen -destination=mocks_test.go -package=$GOPACKAGE . Ledger,Directory
