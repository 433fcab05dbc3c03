// Package containers starts Docker backed dependencies for integration tests.
//
// Tests using it carry the integration build tag and share one container per
// package through TestMain:
//
//	var mysqlC *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    c, err := containers.NewMySQLContainer(ctx, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    mysqlC = c
//	    code := m.Run()
//	    _ = c.Terminate(ctx)
//	    os.Exit(code)
//	}
//
// Run them with:
//
//	go test -tags=integration ./...
package containers
