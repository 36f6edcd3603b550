package config

import (
	"fmt"
	"strings"

	"github.com/John-Robertt/anicat/internal/profile"
)

// LoadProfiles 合并内置 profile 与 profiles_file（若配置）。
func LoadProfiles(eff EffectiveConfig) (profile.Catalog, error) {
	var extra []profile.Profile
	if eff.ProfilesFile != "" {
		ps, err := profile.LoadFile(eff.ProfilesFile)
		if err != nil {
			return profile.Catalog{}, &Error{Code: ErrCodeProfileInvalid, Path: eff.ProfilesFile, Err: err}
		}
		extra = ps
	}
	cat, err := profile.NewCatalog(profile.Builtin(), extra)
	if err != nil {
		return profile.Catalog{}, &Error{Code: ErrCodeProfileInvalid, Path: eff.ProfilesFile, Err: err}
	}
	return cat, nil
}

// SelectProfile 取出 eff.Site 对应的 profile，并应用 base_url 覆盖。
func SelectProfile(cat profile.Catalog, eff EffectiveConfig) (profile.Profile, error) {
	p, ok := cat.Get(eff.Site)
	if !ok {
		return profile.Profile{}, &Error{
			Code: ErrCodeSiteUnknown,
			Path: eff.ConfigPath,
			Err:  fmt.Errorf("未知站点 %q（可用：%s）", eff.Site, strings.Join(cat.Names(), ", ")),
		}
	}
	if eff.BaseURL != "" {
		p.BaseURL = eff.BaseURL
	}
	return p, nil
}
