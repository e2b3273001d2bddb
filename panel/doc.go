// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel describes e-paper panel models.
//
// A Descriptor carries the geometry, colors, waveform tables and the command
// sequences of one model. The sequences are data; package epd runs them
// against a transport.
//
// # Datasheets
//
// SSD1608: https://www.waveshare.com/w/upload/e/e6/1.54inch_e-Paper_Datasheet.pdf
//
// SSD1675B: https://www.waveshare.com/w/upload/d/d5/2.13inch_e-Paper_Specification.pdf
//
// SSD1680: https://www.waveshare.com/w/upload/5/59/2.13inch_e-Paper_V4_Specificition.pdf
//
// UC8176: https://www.waveshare.com/w/upload/6/6a/4.2inch-e-paper-specification.pdf
//
// IL0373: https://www.waveshare.com/w/upload/d/d8/2.9inch-e-paper-b-specification.pdf
//
// UC8159: https://www.waveshare.com/w/upload/7/7a/5.65inch_e-Paper_%28F%29_Sepecification.pdf
package panel
