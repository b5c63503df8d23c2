package tropic

import (
	"fmt"
	"io"

	"github.com/tropicsquare/tropic-go/firmware"
	"github.com/tropicsquare/tropic-go/l2"
)

// Version is a chip-reported firmware version.
type Version struct {
	Major, Minor, Patch byte
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// RiscvFirmwareVersion reports the chip's RISC-V core firmware
// version via Get_Info_Req(InfoRiscvFwVer).
func (c *Context) RiscvFirmwareVersion() (Version, error) {
	return c.fetchVersion(l2.InfoRiscvFwVer)
}

// SpectFirmwareVersion reports the chip's SPECT co-processor firmware
// version via Get_Info_Req(InfoSpectFwVer).
func (c *Context) SpectFirmwareVersion() (Version, error) {
	return c.fetchVersion(l2.InfoSpectFwVer)
}

func (c *Context) fetchVersion(sel l2.InfoSelector) (Version, error) {
	resp, err := c.l2.Exchange(l2.GetInfoRequest(sel, 0))
	if err != nil {
		return Version{}, err
	}
	if len(resp.Data) < 3 {
		return Version{}, fmt.Errorf("tropic: short firmware version response: %d bytes", len(resp.Data))
	}
	return Version{Major: resp.Data[0], Minor: resp.Data[1], Patch: resp.Data[2]}, nil
}

// FwBankInfo reports which mutable firmware bank the chip is
// currently running from and which banks hold an image it considers
// valid.
type FwBankInfo struct {
	Active     firmware.Bank
	BankAValid bool
	BankBValid bool
}

// FirmwareBankInfo issues Get_Info_Req(InfoFwBank) to learn which bank
// is active and which banks are populated — the information needed to
// decide which bank a firmware update should target.
func (c *Context) FirmwareBankInfo() (FwBankInfo, error) {
	resp, err := c.l2.Exchange(l2.GetInfoRequest(l2.InfoFwBank, 0))
	if err != nil {
		return FwBankInfo{}, err
	}
	if len(resp.Data) < 2 {
		return FwBankInfo{}, fmt.Errorf("tropic: short fw bank info response: %d bytes", len(resp.Data))
	}
	return FwBankInfo{
		Active:     firmware.Bank(resp.Data[0]),
		BankAValid: resp.Data[1]&0x01 != 0,
		BankBValid: resp.Data[1]&0x02 != 0,
	}, nil
}

// UpdateFirmware queries the chip's current bank info and streams
// image into whichever bank is not presently active, so a running
// chip's own bank is never overwritten mid-update. The caller is
// still responsible for issuing Startup_Req afterward to reboot into
// the new image.
func (c *Context) UpdateFirmware(image io.Reader) error {
	info, err := c.FirmwareBankInfo()
	if err != nil {
		return err
	}
	target := firmware.BankA
	if info.Active == firmware.BankA {
		target = firmware.BankB
	}
	return firmware.Update(c.l2, target, image)
}
