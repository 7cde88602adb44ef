// Package skstack implements the subset of the SKSTACK-IP command set needed
// to pair a Wi-SUN B-route radio with a smart meter: ASCII mode activation,
// active scan and PANA authentication.
//
// Basic usage:
//
//	port, err := serialport.Open("/dev/ttyUSB0")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer port.Close()
//
//	client, err := skstack.New(port)
//	if err != nil {
//		log.Fatal(err)
//	}
//	session, err := client.Join(ctx, rbid, password)
//	if errors.Is(err, skstack.ErrJoinFailure) {
//		// wrong ID or password
//	}
//	defer session.Close(ctx)
package skstack
