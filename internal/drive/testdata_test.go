package drive

// minimal ISO-BMFF header that sniffs as video/mp4
var mp4Bytes = append([]byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p',
	'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00,
	'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}, make([]byte, 64)...)

const interstitialHTML = `<!DOCTYPE html><html><head><title>Google Drive - Virus scan warning</title></head>` +
	`<body><form id="download-form" action="https://drive.usercontent.google.com/download"></form></body></html>`
